package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates the variants of PatchError.
type ErrorKind int

const (
	// KindLookupFailure wraps a review-service or git error met while resolving the change's dependencies.
	KindLookupFailure ErrorKind = iota
	// KindDependency re-attributes a dependency's PatchError to the change that needed it.
	KindDependency
	// KindNotEligible marks a dependency outside the allowed set of a non-submitting run.
	KindNotEligible
	// KindRejected marks a dependency outside the batch of a submitting run.
	KindRejected
	// KindRecursionLimit is raised on the change where the depth budget ran out.
	KindRecursionLimit
	// KindRecursionAtRoot means the root itself could not be expanded within the budget.
	KindRecursionAtRoot
	// KindRecursionInChain means a dependency deep in the root's chain exhausted the budget.
	KindRecursionInChain
	// KindRemoteUnavailable means no review service is bound for the change's remote.
	KindRemoteUnavailable
	// KindApplyFailure means materializing the change failed; see Inflight.
	KindApplyFailure
	// KindAlreadyApplied means the change's content is already present in the tree.
	KindAlreadyApplied
	// KindNotInManifest means no checkout maps to the change's project and branch.
	KindNotInManifest
	// KindMalformedDependency means the commit message declares an unparsable dependency.
	KindMalformedDependency
	// KindTransactionTooLong means the change cannot fit into a length-limited transaction.
	KindTransactionTooLong
)

var kindNames = map[ErrorKind]string{
	KindLookupFailure:       "lookup-failure",
	KindDependency:          "dependency",
	KindNotEligible:         "not-eligible",
	KindRejected:            "rejected",
	KindRecursionLimit:      "recursion-limit",
	KindRecursionAtRoot:     "recursion-at-root",
	KindRecursionInChain:    "recursion-in-chain",
	KindRemoteUnavailable:   "remote-unavailable",
	KindApplyFailure:        "apply-failure",
	KindAlreadyApplied:      "already-applied",
	KindNotInManifest:       "not-in-manifest",
	KindMalformedDependency: "malformed-dependency",
	KindTransactionTooLong:  "transaction-too-long",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PatchError is the single error type surfaced by resolution and application.
// It always names the change it is attributed to; Cause holds the next link
// of the chain ("X failed because dependency Y failed because Z").
type PatchError struct {
	Kind     ErrorKind
	Change   *Change
	Cause    error
	Inflight bool     // failed against the current patch stack rather than ToT
	Files    []string // conflicting files, when known
	Message  string
}

// NewPatchError creates an error of the given kind for change.
func NewPatchError(kind ErrorKind, change *Change, message string) *PatchError {
	return &PatchError{Kind: kind, Change: change, Message: message}
}

// NewApplyError reports a failed materialization.
func NewApplyError(change *Change, inflight bool, files []string, message string) *PatchError {
	return &PatchError{
		Kind:     KindApplyFailure,
		Change:   change,
		Inflight: inflight,
		Files:    files,
		Message:  message,
	}
}

// WrapForParent attributes err to parent. A PatchError already attributed to
// parent is returned unchanged; any other PatchError becomes a dependency
// failure inheriting its Inflight flag; foreign errors become lookup failures.
func WrapForParent(parent *Change, err error) error {
	if err == nil {
		return nil
	}
	return AttributeTo(parent, err)
}

// AttributeTo is WrapForParent for a non-nil err, returning the concrete type.
func AttributeTo(parent *Change, err error) *PatchError {
	var patchErr *PatchError
	if errors.As(err, &patchErr) {
		if patchErr.Change == parent || (patchErr.Change != nil && patchErr.Change.ID() == parent.ID() && parent.ID() != "") {
			return patchErr
		}
		return &PatchError{
			Kind:     KindDependency,
			Change:   parent,
			Cause:    patchErr,
			Inflight: patchErr.Inflight,
		}
	}
	return &PatchError{Kind: KindLookupFailure, Change: parent, Cause: err}
}

func (e *PatchError) Error() string {
	return e.Change.Link() + " " + e.ShortExplanation()
}

func (e *PatchError) Unwrap() error {
	return e.Cause
}

// ShortExplanation describes the failure in a form that reads after the change link.
func (e *PatchError) ShortExplanation() string {
	switch e.Kind {
	case KindDependency:
		var inner *PatchError
		if errors.As(e.Cause, &inner) {
			return fmt.Sprintf("depends on %s, which %s", inner.Change.Link(), inner.ShortExplanation())
		}
		return fmt.Sprintf("depends on a change which failed: %v", e.Cause)
	case KindLookupFailure:
		return fmt.Sprintf("failed: %v", e.Cause)
	case KindNotEligible:
		return "is not eligible for this run (it is outside the set of changes being tried)."
	case KindRejected:
		return "was rejected: it is not part of the batch being submitted."
	case KindRecursionLimit:
		return "has dependencies nested deeper than the recursion limit" + e.suffix()
	case KindRecursionAtRoot:
		return "could not be resolved within the dependency recursion limit" + e.suffix()
	case KindRecursionInChain:
		var inner *PatchError
		if errors.As(e.Cause, &inner) {
			return "exhausted the dependency recursion limit: " + inner.Root().Change.Link() +
				" " + inner.Root().ShortExplanation()
		}
		return "exhausted the dependency recursion limit" + e.suffix()
	case KindRemoteUnavailable:
		return "lives on a review service this run has no access to."
	case KindApplyFailure:
		return e.applyExplanation()
	case KindAlreadyApplied:
		return fmt.Sprintf("conflicted with %s because it's already committed.", e.against())
	case KindNotInManifest:
		return "could not be found in the checkout manifest."
	case KindMalformedDependency:
		return "has a malformed CQ-DEPEND target" + e.suffix()
	case KindTransactionTooLong:
		return "belongs to a transaction that cannot fit the transaction length limit" + e.suffix()
	default:
		return "failed" + e.suffix()
	}
}

// Root returns the innermost PatchError of the chain.
func (e *PatchError) Root() *PatchError {
	current := e
	for {
		var next *PatchError
		if current.Cause == nil || !errors.As(current.Cause, &next) {
			return current
		}
		current = next
	}
}

func (e *PatchError) against() string {
	if e.Inflight {
		return "the current patch series"
	}
	return "ToT"
}

func (e *PatchError) applyExplanation() string {
	var sb strings.Builder
	sb.WriteString("conflicted with ")
	sb.WriteString(e.against())
	sb.WriteString(".")
	if len(e.Files) > 0 {
		sb.WriteString("\n\nThe conflicting files are amongst:\n\n")
		for i, file := range e.Files {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("- ")
			sb.WriteString(file)
		}
	}
	if e.Message != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *PatchError) suffix() string {
	if e.Message == "" {
		return "."
	}
	return ": " + e.Message
}

// IsInflight reports whether err is a PatchError caused by the in-flight stack.
func IsInflight(err error) bool {
	var patchErr *PatchError
	return errors.As(err, &patchErr) && patchErr.Inflight
}

// KindOf returns the kind of the outermost PatchError in err.
func KindOf(err error) (ErrorKind, bool) {
	var patchErr *PatchError
	if !errors.As(err, &patchErr) {
		return 0, false
	}
	return patchErr.Kind, true
}
