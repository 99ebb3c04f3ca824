package gerrit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

const (
	queryCacheSize = 1024
	queryCacheTTL  = 10 * time.Minute
	retryMaxTime   = 30 * time.Second
	requestTimeout = 60 * time.Second
	preferredFetch = "http"
)

// ReviewRepository talks to one Gerrit host through its REST API.
type ReviewRepository struct {
	remote   entities.Remote
	baseURL  string
	username string
	token    string
	client   *http.Client
	cache    *lru.LRU[string, *entities.Change]
}

// NewReviewRepository creates a Gerrit client for remote. Requests are
// authenticated (under /a/) when a token is configured.
func NewReviewRepository(remote entities.Remote, cfg entities.RemoteConfig) repositories.ReviewRepository {
	return newReviewRepository(remote, cfg, &http.Client{Timeout: requestTimeout})
}

func newReviewRepository(
	remote entities.Remote,
	cfg entities.RemoteConfig,
	client *http.Client,
) *ReviewRepository {
	baseURL := strings.TrimSuffix(cfg.Host, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	return &ReviewRepository{
		remote:   remote,
		baseURL:  baseURL,
		username: cfg.Username,
		token:    cfg.Token,
		client:   client,
		cache:    lru.NewLRU[string, *entities.Change](queryCacheSize, nil, queryCacheTTL),
	}
}

// Host returns the Gerrit host URL.
func (it *ReviewRepository) Host() string {
	return it.baseURL
}

// QueryChange finds the single change matching query.
func (it *ReviewRepository) QueryChange(
	ctx context.Context,
	query entities.PatchQuery,
) (*entities.Change, error) {
	search, err := searchTerms(query)
	if err != nil {
		return nil, err
	}
	if cached, ok := it.cache.Get(search); ok {
		return cached, nil
	}

	values := url.Values{}
	values.Set("q", search)
	values.Add("o", "CURRENT_REVISION")
	values.Add("o", "CURRENT_COMMIT")

	var infos []changeInfo
	if err = it.get(ctx, "/changes/?"+values.Encode(), &infos); err != nil {
		return nil, err
	}

	switch len(infos) {
	case 0:
		return nil, fmt.Errorf("%w: %s on %s", repositories.ErrChangeNotFound, search, it.baseURL)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s matched %d changes", repositories.ErrQueryNotSpecific, search, len(infos))
	}

	change := it.toChange(infos[0])
	it.cache.Add(search, change)
	return change, nil
}

// GetHardDeps returns the parent commits of the change's current revision.
func (it *ReviewRepository) GetHardDeps(
	_ context.Context,
	change *entities.Change,
) ([]entities.PatchQuery, error) {
	deps := make([]entities.PatchQuery, 0, len(change.ParentSHA1s))
	for _, parent := range change.ParentSHA1s {
		deps = append(deps, entities.NewPatchQuery(change.Remote, change.Project, change.Branch, "", parent, ""))
	}
	return deps, nil
}

// GetSoftDeps parses the CQ-DEPEND lines of the change's commit message.
// Changes returned by QueryChange always carry their message. Changes built
// elsewhere (a cache injected by the caller, a bare commit) may not, so the
// message is then read from the local checkout when the change was fetched,
// and from Gerrit otherwise.
func (it *ReviewRepository) GetSoftDeps(
	ctx context.Context,
	change *entities.Change,
	repoPath string,
) ([]entities.PatchQuery, error) {
	message, err := it.commitMessage(ctx, change, repoPath)
	if err != nil {
		return nil, err
	}
	deps, err := entities.ParseCQDepends(message)
	if err != nil {
		return nil, entities.NewPatchError(entities.KindMalformedDependency, change, err.Error())
	}
	return deps, nil
}

func (it *ReviewRepository) commitMessage(
	ctx context.Context,
	change *entities.Change,
	repoPath string,
) (string, error) {
	if change.CommitMessage != "" {
		return change.CommitMessage, nil
	}

	if repoPath != "" && change.Fetched && change.SHA1 != "" {
		repo, err := git.PlainOpen(repoPath)
		if err == nil {
			commit, commitErr := repo.CommitObject(plumbing.NewHash(change.SHA1))
			if commitErr == nil {
				return commit.Message, nil
			}
			logger.Debugf("Commit %s not in %s: %v", change.SHA1, repoPath, commitErr)
		}
	}

	id := change.FullChangeID()
	if id == "" {
		id = change.Number
	}
	if id == "" || change.SHA1 == "" {
		return "", fmt.Errorf("%w: cannot read the commit message of %s", entities.ErrIncompleteQuery, change.Link())
	}

	var commit commitInfo
	path := "/changes/" + url.PathEscape(id) + "/revisions/" + change.SHA1 + "/commit"
	if err := it.get(ctx, path, &commit); err != nil {
		return "", err
	}
	return commit.Message, nil
}

func (it *ReviewRepository) toChange(info changeInfo) *entities.Change {
	number := ""
	if info.Number > 0 {
		number = strconv.Itoa(info.Number)
	}
	change := &entities.Change{
		PatchQuery: entities.NewPatchQuery(
			it.remote, info.Project, info.Branch, info.ChangeID, info.CurrentRevision, number,
		),
		Status:  info.Status,
		Subject: info.Subject,
		Owner:   ownerName(info.Owner),
	}

	revision, ok := info.Revisions[info.CurrentRevision]
	if !ok {
		return change
	}
	change.FetchRef = revision.Ref
	change.PatchNumber = revision.Number
	if fetch, found := revision.Fetch[preferredFetch]; found {
		change.ProjectURL = fetch.URL
		if fetch.Ref != "" {
			change.FetchRef = fetch.Ref
		}
	} else {
		for _, fetch := range revision.Fetch {
			change.ProjectURL = fetch.URL
			break
		}
	}
	if revision.Commit != nil {
		change.CommitMessage = revision.Commit.Message
		for _, parent := range revision.Commit.Parents {
			change.ParentSHA1s = append(change.ParentSHA1s, parent.Commit)
		}
	}
	return change
}

// get executes a GET request against a Gerrit API endpoint and decodes the
// JSON body after its anti-XSSI line. Server errors and transport failures are
// retried with an exponential backoff.
func (it *ReviewRepository) get(ctx context.Context, path string, target any) error {
	requestURL := it.baseURL + path
	if it.token != "" {
		requestURL = it.baseURL + "/a" + path
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxTime

	var body []byte
	err := backoff.Retry(func() error {
		var requestErr error
		body, requestErr = it.do(ctx, requestURL)
		var statusErr *statusError
		if errors.As(requestErr, &statusErr) && statusErr.statusCode < http.StatusInternalServerError {
			return backoff.Permanent(requestErr)
		}
		return requestErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return err
	}

	i := bytes.IndexByte(body, '\n')
	if i < 0 {
		return fmt.Errorf("%s: malformed json response - bad header", requestURL)
	}
	if err = json.Unmarshal(body[i:], target); err != nil {
		return fmt.Errorf("%s: malformed json response: %w", requestURL, err)
	}
	return nil
}

func (it *ReviewRepository) do(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if it.token != "" {
		req.SetBasicAuth(it.username, it.token)
	}

	resp, err := it.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", repositories.ErrChangeNotFound, requestURL))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{url: requestURL, statusCode: resp.StatusCode, status: resp.Status, body: string(body)}
	}
	return body, nil
}

// statusError is an HTTP error response served by Gerrit.
type statusError struct {
	url        string
	statusCode int
	status     string
	body       string
}

func (e *statusError) Error() string {
	extra := strings.TrimSpace(e.body)
	if extra != "" {
		extra = ": " + extra
	}
	return fmt.Sprintf("%s: %s%s", e.url, e.status, extra)
}

// searchTerms renders query in the Gerrit search syntax.
func searchTerms(query entities.PatchQuery) (string, error) {
	switch {
	case query.Number != "":
		return "change:" + query.Number, nil
	case query.FullChangeID() != "":
		return fmt.Sprintf("project:%s branch:%s change:%s", query.Project, query.Branch, query.ChangeID), nil
	case query.SHA1 != "":
		return "commit:" + query.SHA1, nil
	case query.ChangeID != "":
		return "change:" + query.ChangeID, nil
	default:
		return "", entities.ErrIncompleteQuery
	}
}

func ownerName(owner accountInfo) string {
	switch {
	case owner.Email != "":
		return owner.Email
	case owner.Username != "":
		return owner.Username
	default:
		return owner.Name
	}
}
