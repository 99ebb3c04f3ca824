package gerrit

// NewReviewRepositoryWithClient exports newReviewRepository for testing.
var NewReviewRepositoryWithClient = newReviewRepository //nolint:gochecknoglobals // test export

// SearchTerms exports searchTerms for testing.
var SearchTerms = searchTerms //nolint:gochecknoglobals // test export
