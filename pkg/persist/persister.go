package persist

import (
	"errors"
	"os"
)

// Persister handles I/O for one document of a specific state type.
type Persister[T any] struct {
	path  string
	codec Codec
}

// NewPersister creates a persister for the document at path. A nil codec
// selects one from the file extension.
func NewPersister[T any](path string, codec Codec) *Persister[T] {
	if codec == nil {
		codec = CodecFor(path)
	}

	return &Persister[T]{
		path:  path,
		codec: codec,
	}
}

// Path returns the document location.
func (p *Persister[T]) Path() string {
	return p.path
}

// Save rewrites the document with state.
func (p *Persister[T]) Save(state *T) error {
	return SaveState(p.path, p.codec, state)
}

// Load decodes the document into state. It reports false, without error,
// when the document does not exist yet.
func (p *Persister[T]) Load(state *T) (bool, error) {
	err := LoadState(p.path, p.codec, state)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
