package entities

import (
	"fmt"
	"strings"
)

// Change statuses reported by the review service.
const (
	StatusNew       = "NEW"
	StatusMerged    = "MERGED"
	StatusAbandoned = "ABANDONED"
)

// Change is one proposed patch under review, as materialized by a lookup.
// Once returned by a lookup it is shared; only Fetched is mutated afterwards.
type Change struct {
	PatchQuery

	Status        string
	Subject       string
	Owner         string
	CommitMessage string
	ParentSHA1s   []string // hard (Gerrit) dependencies, as parent commits
	ProjectURL    string   // URL the change's objects are fetched from
	FetchRef      string   // e.g. refs/changes/45/12345/3
	PatchNumber   int
	Fetched       bool
}

// IsAlreadyMerged reports whether the review service considers the change merged.
func (c *Change) IsAlreadyMerged() bool {
	return c.Status == StatusMerged
}

// Link renders the change the way operators reference it, e.g. CL:*1234.
func (c *Change) Link() string {
	if c.Number != "" {
		return clPrefix + c.Remote.Prefix() + c.Number
	}
	if c.ChangeID != "" {
		return clPrefix + c.Remote.Prefix() + c.ChangeID
	}
	return clPrefix + c.Remote.Prefix() + shortSHA1(c.SHA1)
}

// Query returns the reference that identifies this change.
func (c *Change) Query() PatchQuery {
	return c.PatchQuery
}

func (c *Change) String() string {
	s := c.Link()
	if c.Subject != "" {
		s += fmt.Sprintf(" (%s)", c.Subject)
	}
	return s
}

// ChangeLinks joins the links of the given changes with spaces.
func ChangeLinks(changes []*Change) string {
	links := make([]string, 0, len(changes))
	for _, change := range changes {
		links = append(links, change.Link())
	}
	return strings.Join(links, " ")
}

func shortSHA1(sha1 string) string {
	const short = 8
	if len(sha1) > short {
		return sha1[:short]
	}
	return sha1
}
