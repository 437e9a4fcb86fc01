package gitlib

// TestCommit is an in-memory CommitInfo for unit tests that do not need a
// real object database. Only the parent count matters to extraction, the
// parent hashes are kept to make fixtures read like history.
type TestCommit struct {
	ID      Hash
	Text    string
	Parents []Hash
}

// NewTestCommit builds a TestCommit.
func NewTestCommit(hash Hash, message string, parents ...Hash) *TestCommit {
	return &TestCommit{ID: hash, Text: message, Parents: parents}
}

// Hash implements CommitInfo.
func (c *TestCommit) Hash() Hash { return c.ID }

// Message implements CommitInfo.
func (c *TestCommit) Message() string { return c.Text }

// NumParents implements CommitInfo.
func (c *TestCommit) NumParents() int { return len(c.Parents) }
