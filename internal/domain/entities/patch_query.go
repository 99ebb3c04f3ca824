package entities

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	maxGerritNumberLength = 6
	changeIDPrefix        = "I"
	changeIDHexLength     = 40
	clPrefix              = "CL:"
)

var (
	sha1Pattern       = regexp.MustCompile(`^[0-9a-f]{40}$`)
	repoNamePattern   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_\-]*(/[a-zA-Z0-9_-]+)*$`)
	branchNamePattern = regexp.MustCompile(`^(refs/heads/)?[a-zA-Z0-9_][a-zA-Z0-9_\-]*$`)
)

// ErrIncompleteQuery is returned when a PatchQuery carries nothing a review service can search for.
var ErrIncompleteQuery = errors.New(
	"not enough information to query: one of change number, Change-Id or SHA1 is required",
)

// PatchQuery is an unresolved reference to a change: a Gerrit number,
// a Change-Id (optionally qualified by project and branch) or a commit hash.
type PatchQuery struct {
	Remote   Remote
	Project  string
	Branch   string
	ChangeID string
	SHA1     string
	Number   string
}

// NewPatchQuery builds a query, keeping only the basename of a tracking branch
// (refs/heads/main becomes main).
func NewPatchQuery(remote Remote, project, branch, changeID, sha1, number string) PatchQuery {
	if branch != "" {
		branch = path.Base(branch)
	}
	return PatchQuery{
		Remote:   remote,
		Project:  project,
		Branch:   branch,
		ChangeID: changeID,
		SHA1:     sha1,
		Number:   number,
	}
}

// FullChangeID returns project~branch~Change-Id, or "" when any part is unknown.
func (q PatchQuery) FullChangeID() string {
	if q.Project == "" || q.Branch == "" || q.ChangeID == "" {
		return ""
	}
	return q.Project + "~" + q.Branch + "~" + q.ChangeID
}

// ID is the unique internal identifier of the referenced change, with the
// remote prefix applied. It is empty when the query is not specific enough.
func (q PatchQuery) ID() string {
	if full := q.FullChangeID(); full != "" {
		return q.Remote.Prefix() + full
	}
	if q.SHA1 != "" {
		return q.Remote.Prefix() + q.SHA1
	}
	return ""
}

// Aliases returns every key that uniquely identifies this reference.
// A bare Change-Id is not unique across projects and is never an alias.
func (q PatchQuery) Aliases() []string {
	keys := make([]string, 0, 3) //nolint:mnd // number, full change id, sha1
	for _, key := range []string{q.Number, q.FullChangeID(), q.SHA1} {
		if key != "" {
			keys = append(keys, q.Remote.Prefix()+key)
		}
	}
	return keys
}

// QueryText returns the most specific search text for a review service.
func (q PatchQuery) QueryText() (string, error) {
	switch {
	case q.Number != "":
		return q.Number, nil
	case q.FullChangeID() != "":
		return q.FullChangeID(), nil
	case q.SHA1 != "":
		return q.SHA1, nil
	case q.ChangeID != "":
		return q.ChangeID, nil
	default:
		return "", ErrIncompleteQuery
	}
}

// IsSHA1Only reports whether the query can only be answered by commit hash.
func (q PatchQuery) IsSHA1Only() bool {
	return q.SHA1 != "" && q.Number == "" && q.ChangeID == ""
}

func (q PatchQuery) String() string {
	text, err := q.QueryText()
	if err != nil {
		return q.Remote.Prefix() + "<unknown>"
	}
	return q.Remote.Prefix() + text
}

// IsSHA1 reports whether text is a full lowercase hex commit hash.
func IsSHA1(text string) bool {
	return sha1Pattern.MatchString(text)
}

// IsGerritNumber reports whether text looks like a Gerrit change number.
func IsGerritNumber(text string) bool {
	if text == "" || len(text) > maxGerritNumberLength {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsChangeID reports whether text is a Gerrit Change-Id (I followed by 40 hex digits).
func IsChangeID(text string) bool {
	return len(text) == len(changeIDPrefix)+changeIDHexLength &&
		strings.HasPrefix(text, changeIDPrefix) &&
		IsSHA1(strings.ToLower(text[len(changeIDPrefix):]))
}

// ParseFullChangeID splits project~branch~Change-Id.
func ParseFullChangeID(text string) (string, string, string, bool) {
	fields := strings.Split(text, "~")
	if len(fields) != 3 { //nolint:mnd // project, branch, change id
		return "", "", "", false
	}
	project, branch, changeID := fields[0], fields[1], fields[2]
	if !repoNamePattern.MatchString(project) ||
		!branchNamePattern.MatchString(branch) ||
		!IsChangeID(changeID) {
		return "", "", "", false
	}
	return project, branch, changeID, true
}

// StripPrefix splits an internal "*" marker off a reference.
func StripPrefix(text string) (Remote, string) {
	if rest, ok := strings.CutPrefix(text, InternalPrefix); ok {
		return RemoteInternal, rest
	}
	return RemoteExternal, text
}

// ParseOptions restricts which reference forms ParsePatchDep accepts.
type ParseOptions struct {
	NoChangeID     bool
	NoSHA1         bool
	NoFullChangeID bool
	NoGerritNumber bool
}

// ParsePatchDep parses a dependency as written by a user or in a commit
// message: an optional "CL:" marker, an optional "*" internal marker, then a
// full Change-Id, a Change-Id, a Gerrit number or a SHA1.
func ParsePatchDep(text string, opts ParseOptions) (PatchQuery, error) {
	original := text
	if text == "" {
		return PatchQuery{}, errors.New("empty dependency")
	}

	if strings.HasPrefix(strings.ToUpper(text), clPrefix) {
		if !strings.HasPrefix(text, clPrefix) {
			return PatchQuery{}, fmt.Errorf("'CL:' must be upper case: %q", original)
		}
		text = text[len(clPrefix):]
	}

	remote, text := StripPrefix(text)

	if project, branch, changeID, ok := ParseFullChangeID(text); ok {
		if opts.NoFullChangeID {
			return PatchQuery{}, fmt.Errorf("full Change-Id is not allowed: %q", original)
		}
		return NewPatchQuery(remote, project, branch, changeID, "", ""), nil
	}

	if IsChangeID(text) {
		if opts.NoChangeID {
			return PatchQuery{}, fmt.Errorf("Change-Id is not allowed: %q", original)
		}
		return PatchQuery{Remote: remote, ChangeID: text}, nil
	}

	if IsGerritNumber(text) {
		if opts.NoGerritNumber {
			return PatchQuery{}, fmt.Errorf("Gerrit number is not allowed: %q", original)
		}
		return PatchQuery{Remote: remote, Number: text}, nil
	}

	if IsSHA1(text) {
		if opts.NoSHA1 {
			return PatchQuery{}, fmt.Errorf("SHA1 is not allowed: %q", original)
		}
		return PatchQuery{Remote: remote, SHA1: text}, nil
	}

	return PatchQuery{}, fmt.Errorf("cannot parse the dependency: %s", original)
}
