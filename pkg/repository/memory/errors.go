package memory

import "github.com/m-mizutani/goerr/v2"

var (
	ErrIndexNotFound     = goerr.New("index not found")
	ErrIndexExists       = goerr.New("index already exists")
	ErrDimensionMismatch = goerr.New("vector dimension mismatch")
)
