package model

import "log/slog"

// DefaultResearchTopics are ingested by the bulk initialization when no
// topic list is configured
var DefaultResearchTopics = []string{
	"PCOS nutrition",
	"PCOS insulin resistance",
	"endometriosis diet",
	"endometriosis pain management",
	"cortisol stress women",
	"thyroid health women",
	"hypothyroidism pregnancy",
	"menstrual cycle nutrition",
}

// IngestResult summarizes one ingestion pass
type IngestResult struct {
	RunID     string
	Topic     string
	URLs      []string
	Scraped   int // Sources fetched successfully
	Extracted int // Documents produced by extraction
	Embedded  int // Documents with an embedding
	Stored    int // Documents written to the index
}

// LogValue implements slog.LogValuer
func (r *IngestResult) LogValue() slog.Value {
	if r == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("run_id", r.RunID),
		slog.String("topic", r.Topic),
		slog.Int("sources", len(r.URLs)),
		slog.Int("scraped", r.Scraped),
		slog.Int("extracted", r.Extracted),
		slog.Int("embedded", r.Embedded),
		slog.Int("stored", r.Stored),
	)
}
