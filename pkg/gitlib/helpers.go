package gitlib

import (
	"os"
	"regexp"
	"strings"
)

var scpLikeURI = regexp.MustCompile(`^[A-Za-z]\w*@[A-Za-z0-9][\w.]*:`)

// IsRemoteURI reports whether uri names a network remote (URL or scp-like
// ssh address) rather than a path on the local filesystem.
func IsRemoteURI(uri string) bool {
	if strings.HasPrefix(uri, "file://") {
		return false
	}

	return strings.Contains(uri, "://") || scpLikeURI.MatchString(uri)
}

// TrimPathSeparator strips a single trailing path separator from a local path.
func TrimPathSeparator(path string) string {
	if len(path) > 1 && path[len(path)-1] == os.PathSeparator {
		return path[:len(path)-1]
	}

	return path
}
