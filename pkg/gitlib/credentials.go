package gitlib

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrAuthentication is returned when the remote keeps rejecting credentials.
var ErrAuthentication = errors.New("authentication failed")

// maxCredentialAttempts bounds how often libgit2 may ask for credentials
// during one operation; libgit2 retries forever on rejected credentials.
const maxCredentialAttempts = 3

const defaultSSHUser = "git"

// Credentials selects how to authenticate against a remote. SSH remotes use
// the running ssh-agent; HTTP remotes use Username/Password when set.
type Credentials struct {
	Username string
	Password string
}

// Environment variables read by CredentialsFromEnv.
const (
	EnvUsername = "GIT_USERNAME"
	EnvPassword = "GIT_PASSWORD"
)

// CredentialsFromEnv reads HTTP credentials from GIT_USERNAME and
// GIT_PASSWORD. A token can be passed as the password.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
}

func (c Credentials) fetchOptions() git2go.FetchOptions {
	var attempts atomic.Int32

	return git2go.FetchOptions{
		RemoteCallbacks: git2go.RemoteCallbacks{
			CredentialsCallback: func(url, usernameFromURL string, allowed git2go.CredentialType) (*git2go.Credential, error) {
				if attempts.Add(1) > maxCredentialAttempts {
					return nil, fmt.Errorf("%w: %s", ErrAuthentication, url)
				}

				return c.credential(usernameFromURL, allowed)
			},
		},
	}
}

func (c Credentials) credential(usernameFromURL string, allowed git2go.CredentialType) (*git2go.Credential, error) {
	switch {
	case allowed&git2go.CredentialTypeSSHKey != 0:
		user := usernameFromURL
		if user == "" {
			user = defaultSSHUser
		}

		return git2go.NewCredentialSSHKeyFromAgent(user)
	case allowed&git2go.CredentialTypeUserpassPlaintext != 0 && c.Username != "":
		return git2go.NewCredentialUserpassPlaintext(c.Username, c.Password)
	case allowed&git2go.CredentialTypeUsername != 0:
		user := usernameFromURL
		if user == "" {
			user = defaultSSHUser
		}

		return git2go.NewCredentialUsername(user)
	default:
		return git2go.NewCredentialDefault()
	}
}
