package gerrit

// changeInfo is the JSON struct for a Gerrit ChangeInfo.
type changeInfo struct {
	ID              string                  `json:"id"`
	Project         string                  `json:"project"`
	Branch          string                  `json:"branch"`
	ChangeID        string                  `json:"change_id"`
	Subject         string                  `json:"subject"`
	Status          string                  `json:"status"`
	Number          int                     `json:"_number"`
	Owner           accountInfo             `json:"owner"`
	CurrentRevision string                  `json:"current_revision"`
	Revisions       map[string]revisionInfo `json:"revisions"`
}

// accountInfo is the JSON struct for a Gerrit AccountInfo.
type accountInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// revisionInfo is the JSON struct for a Gerrit RevisionInfo.
type revisionInfo struct {
	Number int                  `json:"_number"`
	Ref    string               `json:"ref"`
	Fetch  map[string]fetchInfo `json:"fetch"`
	Commit *commitInfo          `json:"commit"`
}

// fetchInfo is the JSON struct for a Gerrit FetchInfo.
type fetchInfo struct {
	URL string `json:"url"`
	Ref string `json:"ref"`
}

// commitInfo is the JSON struct for a Gerrit CommitInfo.
type commitInfo struct {
	Commit  string `json:"commit"`
	Parents []struct {
		Commit string `json:"commit"`
	} `json:"parents"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
