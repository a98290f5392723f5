package models

// Status tags a retrieval outcome so callers never confuse "no match" with "system down".
type Status string

const (
	StatusFound       Status = "found"
	StatusNotFound    Status = "not_found"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// Fixed signal strings handed to the dialog layer.
const (
	UnavailableMessage = "Knowledge base is not available right now."
	EmptyIndexMessage  = "The knowledge base seems empty."
)

// ContextDelimiter separates fragments in an assembled retrieval context.
const ContextDelimiter = "\n\n---\n\n"

// Hit is one resolved search hit. Distance is the squared Euclidean distance to the query.
type Hit struct {
	ID       int64   `json:"id"`
	Distance float32 `json:"distance"`
	Text     string  `json:"text"`
}

// QueryResult is the tagged result of a retrieval query. Context and Hits are set only when
// Status is StatusFound.
type QueryResult struct {
	Status  Status `json:"status"`
	Context string `json:"context,omitempty"`
	Hits    []*Hit `json:"hits,omitempty"`
}

// Found reports whether the result carries retrieved context.
func (r *QueryResult) Found() bool {
	return r != nil && r.Status == StatusFound
}

// Message returns the text the dialog layer shows: the context when found, a fixed signal
// string when unavailable or empty, and "" when nothing matched.
func (r *QueryResult) Message() string {
	switch r.Status {
	case StatusFound:
		return r.Context
	case StatusUnavailable:
		return UnavailableMessage
	case StatusEmpty:
		return EmptyIndexMessage
	default:
		return ""
	}
}
