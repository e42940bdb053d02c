package scraper

import "github.com/m-mizutani/goerr/v2"

var (
	ErrRateLimited      = goerr.New("document source rate limited the request")
	ErrUnexpectedStatus = goerr.New("unexpected HTTP status from document source")
	ErrScrapeFailed     = goerr.New("document source reported a failed scrape")
)
