//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

const (
	defaultProject = "chromiumos/chromite"
	defaultBranch  = "main"
)

// ChangeBuilder helps create test changes with a fluent interface. The
// Change-Id and commit hash are derived from the number so that every
// number identifies one change.
type ChangeBuilder struct {
	*testkit.BaseBuilder
	remote  entities.Remote
	project string
	branch  string
	number  int
	status  string
	subject string
	parents []string
	depends []string
	fetched bool
}

// NewChangeBuilder creates a new change builder with sensible defaults.
func NewChangeBuilder() *ChangeBuilder {
	return &ChangeBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		remote:      entities.RemoteExternal,
		project:     defaultProject,
		branch:      defaultBranch,
		number:      1,
		status:      entities.StatusNew,
	}
}

// WithNumber sets the Gerrit number (and the derived Change-Id and SHA1).
func (b *ChangeBuilder) WithNumber(number int) *ChangeBuilder {
	b.number = number
	return b
}

// WithRemote sets the remote.
func (b *ChangeBuilder) WithRemote(remote entities.Remote) *ChangeBuilder {
	b.remote = remote
	return b
}

// WithProject sets the project.
func (b *ChangeBuilder) WithProject(project string) *ChangeBuilder {
	b.project = project
	return b
}

// WithBranch sets the target branch.
func (b *ChangeBuilder) WithBranch(branch string) *ChangeBuilder {
	b.branch = branch
	return b
}

// WithStatus sets the review status.
func (b *ChangeBuilder) WithStatus(status string) *ChangeBuilder {
	b.status = status
	return b
}

// WithSubject sets the subject line.
func (b *ChangeBuilder) WithSubject(subject string) *ChangeBuilder {
	b.subject = subject
	return b
}

// WithParents adds hard dependencies on the given changes' commits.
func (b *ChangeBuilder) WithParents(parents ...*entities.Change) *ChangeBuilder {
	for _, parent := range parents {
		b.parents = append(b.parents, parent.SHA1)
	}
	return b
}

// WithParentSHA1 adds a hard dependency on a raw commit.
func (b *ChangeBuilder) WithParentSHA1(sha1 string) *ChangeBuilder {
	b.parents = append(b.parents, sha1)
	return b
}

// WithCQDepend adds soft dependencies, written as in a commit message (e.g. "12" or "*34").
func (b *ChangeBuilder) WithCQDepend(refs ...string) *ChangeBuilder {
	b.depends = append(b.depends, refs...)
	return b
}

// WithFetched marks the change as already fetched.
func (b *ChangeBuilder) WithFetched(fetched bool) *ChangeBuilder {
	b.fetched = fetched
	return b
}

// Build creates the change (satisfies testkit.Builder interface).
func (b *ChangeBuilder) Build() interface{} {
	return b.BuildChange()
}

// BuildChange creates the change with a concrete return type.
func (b *ChangeBuilder) BuildChange() *entities.Change {
	subject := b.subject
	if subject == "" {
		subject = fmt.Sprintf("change %d", b.number)
	}
	message := subject + "\n"
	if len(b.depends) > 0 {
		message += "\nCQ-DEPEND=" + strings.Join(b.depends, ", ") + "\n"
	}
	message += "\nChange-Id: " + ChangeIDFor(b.number) + "\n"

	return &entities.Change{
		PatchQuery: entities.NewPatchQuery(
			b.remote, b.project, b.branch, ChangeIDFor(b.number), SHA1For(b.number), strconv.Itoa(b.number),
		),
		Status:        b.status,
		Subject:       subject,
		CommitMessage: message,
		ParentSHA1s:   append([]string(nil), b.parents...),
		ProjectURL:    "https://example.com/" + b.project,
		FetchRef:      fmt.Sprintf("refs/changes/%02d/%d/1", b.number%100, b.number), //nolint:mnd // shard
		PatchNumber:   1,
		Fetched:       b.fetched,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *ChangeBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.remote = entities.RemoteExternal
	b.project = defaultProject
	b.branch = defaultBranch
	b.number = 1
	b.status = entities.StatusNew
	b.subject = ""
	b.parents = nil
	b.depends = nil
	b.fetched = false
	return b
}

// Clone creates a deep copy of the ChangeBuilder.
func (b *ChangeBuilder) Clone() testkit.Builder {
	return &ChangeBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		remote:      b.remote,
		project:     b.project,
		branch:      b.branch,
		number:      b.number,
		status:      b.status,
		subject:     b.subject,
		parents:     append([]string(nil), b.parents...),
		depends:     append([]string(nil), b.depends...),
		fetched:     b.fetched,
	}
}

// ChangeIDFor returns the Change-Id the builder gives to change number.
func ChangeIDFor(number int) string {
	return fmt.Sprintf("I%040x", number)
}

// SHA1For returns the commit hash the builder gives to change number.
func SHA1For(number int) string {
	return fmt.Sprintf("%040x", 0xc0ffee0000+number) //nolint:mnd // arbitrary, distinct from Change-Ids
}
