package model

// ChatResponse is the assistant answer to a user message
type ChatResponse struct {
	Text     string         `json:"text"`
	Sources  []*SearchMatch `json:"sources,omitempty"`
	Fallback bool           `json:"fallback"` // True when the canned response was returned
}
