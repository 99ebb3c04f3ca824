package entities

// Transaction is the ordered closure of an inducing change and every change
// that must land with it. Dependencies come first and no change appears twice.
type Transaction struct {
	Inducing *Change
	Changes  []*Change
}

// Len returns the number of changes in the transaction.
func (t Transaction) Len() int {
	return len(t.Changes)
}

// Contains reports whether change is part of the transaction.
func (t Transaction) Contains(change *Change) bool {
	return IndexOf(t.Changes, change) >= 0
}

// ProjectState is the HEAD of one working copy captured before a transaction
// touches it. It only lives for one application attempt.
type ProjectState struct {
	RepoPath string
	SHA1     string
}

// PlannedTransaction is the planner's verdict for one root change: either a
// transaction to apply or the error that prevented building it.
type PlannedTransaction struct {
	Root        *Change
	Transaction Transaction
	Err         error
}

// IndexOf returns the position of change in changes (by identity or id), or -1.
func IndexOf(changes []*Change, change *Change) int {
	id := change.ID()
	for i, candidate := range changes {
		if candidate == change || (id != "" && candidate.ID() == id) {
			return i
		}
	}
	return -1
}
