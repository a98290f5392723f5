package models

import "fmt"

// DefaultTopK is the number of fragments retrieved when a request does not say.
const DefaultTopK = 3

// MaxTopK caps the number of fragments a single request may retrieve.
const MaxTopK = 50

// QueryRequest is a retrieval request from the dialog layer.
type QueryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate ensures the request has a query and normalizes K.
func (q *QueryRequest) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K <= 0 {
		q.K = DefaultTopK
	}
	if q.K > MaxTopK {
		q.K = MaxTopK
	}
	return nil
}
