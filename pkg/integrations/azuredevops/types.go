package azuredevops

// listResponse is the envelope around every ADO collection.
type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type repoResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"` // refs/heads/<name>
	WebURL        string `json:"webUrl"`
}

type refResponse struct {
	Name           string `json:"name"`
	ObjectID       string `json:"objectId"`
	PeeledObjectID string `json:"peeledObjectId"`
}

type annotatedTagResponse struct {
	Name         string `json:"name"`
	ObjectID     string `json:"objectId"`
	Message      string `json:"message"`
	TaggedObject struct {
		ObjectID   string `json:"objectId"`
		ObjectType string `json:"objectType"`
	} `json:"taggedObject"`
}

type itemResponse struct {
	ObjectID      string `json:"objectId"`
	GitObjectType string `json:"gitObjectType"` // "tree" or "blob"
	Path          string `json:"path"`
	IsFolder      bool   `json:"isFolder"`
}

type commitResponse struct {
	CommitID string   `json:"commitId"`
	Comment  string   `json:"comment"`
	Parents  []string `json:"parents"`
}

type statusResponse struct {
	State       string `json:"state"` // succeeded, failed, pending, error
	Description string `json:"description"`
	Context     struct {
		Name  string `json:"name"`
		Genre string `json:"genre"`
	} `json:"context"`
}

type createTagRequest struct {
	Name         string `json:"name"`
	Message      string `json:"message"`
	TaggedObject struct {
		ObjectID string `json:"objectId"`
	} `json:"taggedObject"`
}
