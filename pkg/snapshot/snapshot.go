// Package snapshot records the last known head of every tracked branch of
// every tracked repository, and keeps an append-only history of such records.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	"github.com/vberset/resume/pkg/gitlib"
)

// hashSize is the BLAKE3 digest size in bytes.
const hashSize = 32

// ErrCorruptSnapshot is returned when a stored snapshot hash does not match
// the content it claims to describe.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// RepositoryOrigin identifies a repository, usually by its clone URL.
type RepositoryOrigin string

// BranchName identifies a branch inside one repository.
type BranchName string

// CommitHash is the canonical hex form of a commit id.
type CommitHash string

// CommitHashFrom converts a commit id to its canonical form.
func CommitHashFrom(h gitlib.Hash) CommitHash {
	return CommitHash(h.String())
}

// Hash decodes the commit id.
func (c CommitHash) Hash() (gitlib.Hash, error) {
	return gitlib.ParseHash(string(c))
}

// Hash is the hex-encoded content hash of a Snapshot.
type Hash string

// RepositorySnapshot maps each tracked branch of one repository to its head.
type RepositorySnapshot map[BranchName]CommitHash

// Branches returns the branch names in lexical order.
func (rs RepositorySnapshot) Branches() []BranchName {
	return slices.Sorted(maps.Keys(rs))
}

// Heads decodes every recorded head. Entries that are not valid commit ids
// make the whole call fail.
func (rs RepositorySnapshot) Heads() (gitlib.HashSet, error) {
	heads := make(gitlib.HashSet, len(rs))

	for _, branch := range rs.Branches() {
		h, err := rs[branch].Hash()
		if err != nil {
			return nil, fmt.Errorf("head of branch %s: %w", branch, err)
		}

		heads.Add(h)
	}

	return heads, nil
}

// Snapshot is an immutable, content-addressed record of repository heads.
// The zero value is the empty snapshot without a hash.
type Snapshot struct {
	hash         Hash
	repositories map[RepositoryOrigin]RepositorySnapshot
}

// Hash returns the content hash.
func (s Snapshot) Hash() Hash {
	return s.hash
}

// Origins returns the recorded repositories in lexical order.
func (s Snapshot) Origins() []RepositoryOrigin {
	return slices.Sorted(maps.Keys(s.repositories))
}

// Repository returns a copy of the branch heads recorded for origin.
func (s Snapshot) Repository(origin RepositoryOrigin) (RepositorySnapshot, bool) {
	rs, ok := s.repositories[origin]
	if !ok {
		return nil, false
	}

	return maps.Clone(rs), true
}

// BranchCount returns the number of branch heads across all repositories.
func (s Snapshot) BranchCount() int {
	count := 0
	for _, rs := range s.repositories {
		count += len(rs)
	}

	return count
}

// Builder collects repository snapshots before hashing them into a Snapshot.
type Builder struct {
	repositories map[RepositoryOrigin]RepositorySnapshot
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{repositories: make(map[RepositoryOrigin]RepositorySnapshot)}
}

// Add records the heads of one repository, replacing earlier heads for the
// same origin.
func (b *Builder) Add(origin RepositoryOrigin, rs RepositorySnapshot) *Builder {
	b.repositories[origin] = maps.Clone(rs)

	return b
}

// Build hashes the collected heads. The result does not depend on the order
// in which repositories were added.
func (b *Builder) Build() Snapshot {
	repositories := make(map[RepositoryOrigin]RepositorySnapshot, len(b.repositories))
	for origin, rs := range b.repositories {
		repositories[origin] = maps.Clone(rs)
	}

	return Snapshot{
		hash:         computeHash(repositories),
		repositories: repositories,
	}
}

// computeHash feeds origins in lexical order, and within each origin every
// (branch, head) pair in lexical branch order, into a single BLAKE3 state.
func computeHash(repositories map[RepositoryOrigin]RepositorySnapshot) Hash {
	hasher := blake3.New(hashSize, nil)

	for _, origin := range slices.Sorted(maps.Keys(repositories)) {
		hasher.Write([]byte(origin))

		rs := repositories[origin]
		for _, branch := range rs.Branches() {
			hasher.Write([]byte(branch))
			hasher.Write([]byte(rs[branch]))
		}
	}

	return Hash(hex.EncodeToString(hasher.Sum(nil)))
}

// record is the serialized shape of a Snapshot.
type record struct {
	Hash         Hash                                    `json:"hash"         yaml:"hash"`
	Repositories map[RepositoryOrigin]RepositorySnapshot `json:"repositories" yaml:"repositories"`
}

func (s *Snapshot) fromRecord(rec record) error {
	repositories := rec.Repositories
	if repositories == nil {
		repositories = make(map[RepositoryOrigin]RepositorySnapshot)
	}

	computed := computeHash(repositories)
	if computed != rec.Hash {
		return fmt.Errorf("%w: stored hash %s, content hashes to %s", ErrCorruptSnapshot, rec.Hash, computed)
	}

	s.hash = rec.Hash
	s.repositories = repositories

	return nil
}

// MarshalYAML writes the snapshot with origins and branches in lexical order.
func (s Snapshot) MarshalYAML() (any, error) {
	repositories := &yaml.Node{Kind: yaml.MappingNode}

	for _, origin := range s.Origins() {
		branches := &yaml.Node{Kind: yaml.MappingNode}

		rs := s.repositories[origin]
		for _, branch := range rs.Branches() {
			branches.Content = append(branches.Content, scalar(string(branch)), scalar(string(rs[branch])))
		}

		repositories.Content = append(repositories.Content, scalar(string(origin)), branches)
	}

	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("hash"), scalar(string(s.hash)),
			scalar("repositories"), repositories,
		},
	}, nil
}

// UnmarshalYAML decodes a snapshot and verifies its hash.
func (s *Snapshot) UnmarshalYAML(node *yaml.Node) error {
	var rec record

	err := node.Decode(&rec)
	if err != nil {
		return err
	}

	return s.fromRecord(rec)
}

// MarshalJSON writes the snapshot; encoding/json sorts map keys lexically.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	rec := record{Hash: s.hash, Repositories: s.repositories}
	if rec.Repositories == nil {
		rec.Repositories = map[RepositoryOrigin]RepositorySnapshot{}
	}

	return json.Marshal(rec)
}

// UnmarshalJSON decodes a snapshot and verifies its hash.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var rec record

	err := json.Unmarshal(data, &rec)
	if err != nil {
		return err
	}

	return s.fromRecord(rec)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
