package model

// FetchOptions controls how a document source renders a page
type FetchOptions struct {
	Formats     []string
	IncludeTags []string
	ExcludeTags []string
	WaitFor     int // Milliseconds to wait for dynamic content
}

// DefaultFetchOptions returns the options used for research scraping
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Formats:     []string{"markdown"},
		IncludeTags: []string{"article", "main", "p", "h1", "h2", "h3"},
		ExcludeTags: []string{"nav", "footer", "header", "script", "style", "aside"},
		WaitFor:     2000,
	}
}

// FetchResult is the raw content returned by a document source
type FetchResult struct {
	Success  bool
	Markdown string
}
