package vectorindex

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrIndexNotReady is returned when a new index does not become ready in time
	ErrIndexNotReady = goerr.New("vector index is not ready")
)
