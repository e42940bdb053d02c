package model

// Similarity thresholds for the knowledge gap check.
//
// GapThresholdLoose is used by the generic gap check exposed to callers.
// GapThresholdStrict is used inside smart search before deciding to scrape:
// the higher bar makes a strong existing match required to skip the volume and
// sparsity rules, which keeps scraping limited to sparse results.
const (
	GapThresholdLoose  = 0.7
	GapThresholdStrict = 0.85
)

// GapCheckTopK is the number of matches requested by the gap check
const GapCheckTopK = 5

// SparseMatchCount is the match count below which smart search ingests new
// documents before answering
const SparseMatchCount = 2

// Thresholds holds the configured gap thresholds
type Thresholds struct {
	Loose  float64
	Strict float64
}

// DefaultThresholds returns the built-in thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Loose:  GapThresholdLoose,
		Strict: GapThresholdStrict,
	}
}
