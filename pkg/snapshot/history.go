package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vberset/resume/pkg/persist"
)

// ErrSnapshotReference is returned when a snapshot requested by index or
// hash does not exist.
var ErrSnapshotReference = errors.New("unknown snapshot reference")

// History is an append-only sequence of snapshots in which consecutive
// entries never share a hash. Index 0 is the most recent snapshot.
type History struct {
	snapshots []Snapshot // oldest first
}

// NewHistory builds a history from snapshots given oldest first, dropping
// consecutive duplicates.
func NewHistory(snapshots ...Snapshot) *History {
	h := &History{}
	for _, s := range snapshots {
		h.Push(s)
	}

	return h
}

// Len returns the number of snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// Last returns the most recent snapshot.
func (h *History) Last() (Snapshot, bool) {
	return h.ByIndex(0)
}

// ByIndex returns the snapshot i steps back from the most recent one.
func (h *History) ByIndex(i int) (Snapshot, bool) {
	if i < 0 || i >= len(h.snapshots) {
		return Snapshot{}, false
	}

	return h.snapshots[len(h.snapshots)-1-i], true
}

// ByHash returns the most recent snapshot with the given hash.
func (h *History) ByHash(hash Hash) (Snapshot, bool) {
	for i := len(h.snapshots) - 1; i >= 0; i-- {
		if h.snapshots[i].hash == hash {
			return h.snapshots[i], true
		}
	}

	return Snapshot{}, false
}

// Push appends s unless the most recent snapshot has the same hash. It
// reports whether the history grew.
func (h *History) Push(s Snapshot) bool {
	last, ok := h.Last()
	if ok && last.hash == s.hash {
		return false
	}

	h.snapshots = append(h.snapshots, s)

	return true
}

// Snapshots returns the snapshots, most recent first.
func (h *History) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(h.snapshots))
	for i := len(h.snapshots) - 1; i >= 0; i-- {
		out = append(out, h.snapshots[i])
	}

	return out
}

// Resolve looks a snapshot up by a user supplied reference: a decimal index
// counted back from the most recent snapshot, or a snapshot hash.
func (h *History) Resolve(ref string) (Snapshot, error) {
	index, err := strconv.ParseUint(ref, 10, 31)
	if err == nil {
		s, ok := h.ByIndex(int(index))
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: index %d is beyond a history of %d snapshots",
				ErrSnapshotReference, index, h.Len())
		}

		return s, nil
	}

	if len(ref) != hashSize*2 {
		return Snapshot{}, fmt.Errorf("%w: %q is neither an index nor a snapshot hash", ErrSnapshotReference, ref)
	}

	s, ok := h.ByHash(Hash(ref))
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: no snapshot with hash %s", ErrSnapshotReference, ref)
	}

	return s, nil
}

// document is the serialized shape of a History.
type document struct {
	Snapshots []Snapshot `json:"snapshots" yaml:"snapshots"`
}

func (h *History) fromDocument(doc document) error {
	for i := 1; i < len(doc.Snapshots); i++ {
		if doc.Snapshots[i].hash == doc.Snapshots[i-1].hash {
			return fmt.Errorf("%w: snapshots %d and %d share hash %s",
				ErrCorruptSnapshot, i-1, i, doc.Snapshots[i].hash)
		}
	}

	h.snapshots = doc.Snapshots

	return nil
}

// MarshalYAML writes the snapshots oldest first.
func (h *History) MarshalYAML() (any, error) {
	return document{Snapshots: h.nonNil()}, nil
}

// UnmarshalYAML decodes a history and checks its invariants.
func (h *History) UnmarshalYAML(node *yaml.Node) error {
	var doc document

	err := node.Decode(&doc)
	if err != nil {
		return err
	}

	return h.fromDocument(doc)
}

// MarshalJSON writes the snapshots oldest first.
func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{Snapshots: h.nonNil()})
}

// UnmarshalJSON decodes a history and checks its invariants.
func (h *History) UnmarshalJSON(data []byte) error {
	var doc document

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return err
	}

	return h.fromDocument(doc)
}

func (h *History) nonNil() []Snapshot {
	if h.snapshots == nil {
		return []Snapshot{}
	}

	return h.snapshots
}

// Store loads and saves a History file. The codec follows the file
// extension; YAML unless the file ends in ".json".
type Store struct {
	persister *persist.Persister[History]
}

// NewStore returns a store for the history file at path.
func NewStore(path string) *Store {
	return &Store{persister: persist.NewPersister[History](path, nil)}
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.persister.Path()
}

// Load reads the history. A missing file is an empty history.
func (s *Store) Load() (*History, error) {
	history := &History{}

	_, err := s.persister.Load(history)
	if err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}

	return history, nil
}

// Save rewrites the whole history file.
func (s *Store) Save(history *History) error {
	err := s.persister.Save(history)
	if err != nil {
		return fmt.Errorf("save snapshot history: %w", err)
	}

	return nil
}
