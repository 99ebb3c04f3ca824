package git

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

const (
	// MinimumGitVersion is the oldest git CLI able to run the content merges.
	MinimumGitVersion = "v2.0.0"

	fetchRemoteName = "patchseries"
	localRefPrefix  = "refs/patchseries/"
	exitConflict    = 1
)

// Credential authenticates fetches from one host.
type Credential struct {
	Host     string
	Username string
	Token    string
}

// GitRepository operates on local working copies. Reads, resets and fetches
// go through go-git; the content merge of a change shells out to the git CLI
// since go-git cannot merge.
type GitRepository struct {
	auth map[string]*http.BasicAuth

	versionOnce sync.Once
	versionErr  error
}

// NewGitRepository creates a GitRepository authenticating fetches with credentials.
func NewGitRepository(credentials ...Credential) *GitRepository {
	repo := &GitRepository{auth: make(map[string]*http.BasicAuth)}
	for _, credential := range credentials {
		if credential.Token == "" {
			continue
		}
		repo.auth[hostOf(credential.Host)] = &http.BasicAuth{
			Username: credential.Username,
			Password: credential.Token,
		}
	}
	return repo
}

var _ repositories.GitRepository = (*GitRepository)(nil)

// CurrentHead returns the commit checked out in repoPath.
func (it *GitRepository) CurrentHead(_ context.Context, repoPath string) (string, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", repoPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD of %q: %w", repoPath, err)
	}
	return head.Hash().String(), nil
}

// HardReset moves repoPath to sha1, discarding local modifications.
func (it *GitRepository) HardReset(_ context.Context, repoPath, sha1 string) error {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", repoPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open the worktree of %q: %w", repoPath, err)
	}
	//nolint:exhaustruct // Files is only used for mixed resets
	if err = worktree.Reset(&gogit.ResetOptions{
		Commit: plumbing.NewHash(sha1),
		Mode:   gogit.HardReset,
	}); err != nil {
		return fmt.Errorf("failed to reset %q to %s: %w", repoPath, sha1, err)
	}
	return nil
}

// FetchChange fetches the change's ref into a private namespace of repoPath.
func (it *GitRepository) FetchChange(ctx context.Context, repoPath string, change *entities.Change) error {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", repoPath, err)
	}

	if change.SHA1 != "" {
		if _, lookupErr := repo.CommitObject(plumbing.NewHash(change.SHA1)); lookupErr == nil {
			return nil
		}
	}
	if change.ProjectURL == "" || change.FetchRef == "" {
		return fmt.Errorf("%s has no fetch location", change.Link())
	}

	//nolint:exhaustruct // anonymous remote, never written to the config
	remote := gogit.NewRemote(repo.Storer, &config.RemoteConfig{
		Name: fetchRemoteName,
		URLs: []string{change.ProjectURL},
	})
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s", change.FetchRef, localRef(change)))

	//nolint:exhaustruct // Minimal FetchOptions initialization with required fields only
	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: fetchRemoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       it.authFor(change.ProjectURL),
		Tags:       gogit.NoTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s from %s: %w", change.FetchRef, change.ProjectURL, err)
	}

	logger.Debugf("Fetched %s (%s) into %s", change.Link(), change.FetchRef, repoPath)
	return nil
}

// MaterializeChange cherry-picks the change onto HEAD with a content merge.
// When HEAD is ahead of upstream and the pick fails, it is retried on
// upstream: a failure there too is reported against ToT, otherwise the
// conflict is with the changes applied earlier (in-flight). HEAD is left
// where it was in every failure case.
func (it *GitRepository) MaterializeChange(
	ctx context.Context,
	repoPath string,
	change *entities.Change,
	upstream string,
) error {
	if err := it.checkVersion(ctx); err != nil {
		return entities.NewApplyError(change, false, nil, err.Error())
	}

	head, err := it.CurrentHead(ctx, repoPath)
	if err != nil {
		return entities.NewApplyError(change, false, nil, err.Error())
	}
	inflight := upstream != "" && head != upstream

	applyErr := it.cherryPick(ctx, repoPath, change, inflight)
	if applyErr == nil || !inflight {
		return applyErr
	}

	logger.Debugf("%s failed on top of %s, checking it against %s", change.Link(), head, upstream)
	if err = it.HardReset(ctx, repoPath, upstream); err != nil {
		logger.Warnf("Cannot classify the failure of %s: %v", change.Link(), err)
		return applyErr
	}
	totErr := it.cherryPick(ctx, repoPath, change, false)
	if err = it.HardReset(ctx, repoPath, head); err != nil {
		return entities.NewApplyError(change, false, nil, fmt.Sprintf("failed to restore %s: %v", head, err))
	}
	if totErr != nil {
		return totErr
	}
	return applyErr
}

func (it *GitRepository) cherryPick(
	ctx context.Context,
	repoPath string,
	change *entities.Change,
	inflight bool,
) error {
	output, err := runGit(ctx, repoPath, "cherry-pick", "--strategy", "resolve", "--ff", change.SHA1)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return entities.NewApplyError(change, inflight, nil, fmt.Sprintf("cherry-pick failed: %v", err))
	}

	var failure *entities.PatchError
	if exitErr.ExitCode() == exitConflict {
		conflicts, diffErr := conflictingFiles(ctx, repoPath)
		switch {
		case diffErr != nil:
			failure = entities.NewApplyError(change, inflight, nil, diffErr.Error())
		case len(conflicts) == 0:
			failure = &entities.PatchError{Kind: entities.KindAlreadyApplied, Change: change, Inflight: inflight}
		default:
			failure = entities.NewApplyError(change, inflight, conflicts, "")
		}
	} else {
		failure = entities.NewApplyError(change, inflight, nil, fmt.Sprintf(
			"unknown exit code %d returned from cherry-pick: %s", exitErr.ExitCode(), output,
		))
	}

	if _, resetErr := runGit(ctx, repoPath, "reset", "--hard", "HEAD"); resetErr != nil {
		logger.Warnf("Failed to clean %q after a failed cherry-pick: %v", repoPath, resetErr)
	}
	return failure
}

func (it *GitRepository) checkVersion(ctx context.Context) error {
	it.versionOnce.Do(func() {
		output, err := runGit(ctx, "", "--version")
		if err != nil {
			it.versionErr = fmt.Errorf("git is not available: %w", err)
			return
		}
		version := parseGitVersion(output)
		if !semver.IsValid(version) {
			it.versionErr = fmt.Errorf("cannot parse the git version from %q", output)
			return
		}
		if semver.Compare(version, MinimumGitVersion) < 0 {
			it.versionErr = fmt.Errorf("git %s is too old, %s or newer is required", version, MinimumGitVersion)
		}
	})
	return it.versionErr
}

func (it *GitRepository) authFor(projectURL string) transport.AuthMethod {
	if auth, ok := it.auth[hostOf(projectURL)]; ok {
		return auth
	}
	return nil
}

func conflictingFiles(ctx context.Context, repoPath string) ([]string, error) {
	output, err := runGit(ctx, repoPath, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

// parseGitVersion turns "git version 2.39.3 (Apple Git-146)" into "v2.39.3".
func parseGitVersion(output string) string {
	fields := strings.Fields(strings.TrimPrefix(output, "git version "))
	if len(fields) == 0 {
		return ""
	}
	parts := strings.SplitN(fields[0], ".", 4) //nolint:mnd // major.minor.patch[.extra]
	if len(parts) > 3 {                        //nolint:mnd // drop vendor suffixes like .windows.1
		parts = parts[:3]
	}
	return "v" + strings.Join(parts, ".")
}

func localRef(change *entities.Change) string {
	if change.Number != "" && change.PatchNumber > 0 {
		return fmt.Sprintf("%s%s/%s/%d", localRefPrefix, change.Remote, change.Number, change.PatchNumber)
	}
	return localRefPrefix + change.SHA1
}

func hostOf(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Host
}
