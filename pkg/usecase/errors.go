package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Input errors
	ErrEmptyMessage = errors.New("message is empty")
	ErrEmptyQuery   = errors.New("query is empty")

	// Provider errors
	ErrEmptyLLMResponse = errors.New("LLM returned no text")
	ErrServiceDisabled  = errors.New("research service is disabled")
)
