package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// EmbeddingDimension is the dimension of the embedding vector.
// OpenAI text-embedding-3-small uses 1536 dimensions.
const EmbeddingDimension = 1536

// MaxStoredContentLength is the maximum number of characters of document
// content kept in vector index metadata.
const MaxStoredContentLength = 1000

// TopicDelimiter joins topic labels into the single metadata string.
const TopicDelimiter = ", "

// DefaultIndexName is the vector index holding research documents.
const DefaultIndexName = "womens-health-research"

// DocumentID identifies a research document in the vector index
type DocumentID string

// NewDocumentID derives a DocumentID from the source URL, the section position
// and the leading part of the content. Re-ingesting the same section yields the
// same ID, which makes upsert idempotent.
func NewDocumentID(url string, index int, content string) DocumentID {
	prefix := []rune(content)
	if len(prefix) > 200 {
		prefix = prefix[:200]
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", url, index, string(prefix))
	sum := h.Sum(nil)
	return DocumentID("doc_" + hex.EncodeToString(sum[:16]))
}

// ResearchDocument is a research article section extracted from a scraped page.
// It is created during an ingestion pass and never mutated after storage.
type ResearchDocument struct {
	ID            DocumentID
	Title         string
	Content       string
	URL           string
	Source        string   // Human readable origin label such as "PubMed"
	Topics        []string // Topic labels attached at ingestion
	PublishedDate string   // Year, best effort
	Embedding     []float32
}

// HasEmbedding reports whether the embedding step succeeded for the document
func (d *ResearchDocument) HasEmbedding() bool {
	return d != nil && len(d.Embedding) > 0
}

// Metadata converts the document into the metadata stored next to its vector.
// Content is truncated to MaxStoredContentLength characters and topics are
// joined with TopicDelimiter.
func (d *ResearchDocument) Metadata() Metadata {
	return Metadata{
		Title:         d.Title,
		Content:       truncateRunes(d.Content, MaxStoredContentLength),
		URL:           d.URL,
		Source:        d.Source,
		Topics:        strings.Join(d.Topics, TopicDelimiter),
		PublishedDate: d.PublishedDate,
	}
}

// ToRecord converts a document with an embedding into a VectorRecord.
// Returns nil if the document has no embedding.
func (d *ResearchDocument) ToRecord() *VectorRecord {
	if !d.HasEmbedding() {
		return nil
	}
	return &VectorRecord{
		ID:       d.ID,
		Values:   d.Embedding,
		Metadata: d.Metadata(),
	}
}

// Metadata is the stored representation of a research document. The JSON
// shape is consumed by downstream prompt builders and must stay stable.
type Metadata struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	URL           string `json:"url"`
	Source        string `json:"source"`
	Topics        string `json:"topics"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// TopicList splits the joined topics string back into labels
func (m Metadata) TopicList() []string {
	if m.Topics == "" {
		return nil
	}
	return strings.Split(m.Topics, TopicDelimiter)
}

// VectorRecord is the unit written to a vector store
type VectorRecord struct {
	ID       DocumentID
	Values   []float32
	Metadata Metadata
}

// SearchMatch is a single result of a similarity query.
// Score is the cosine similarity (higher is more relevant); NaN means the
// store did not report a score.
type SearchMatch struct {
	ID       DocumentID `json:"id"`
	Score    float64    `json:"score"`
	Metadata *Metadata  `json:"metadata,omitempty"`
}

// HasScore reports whether the store reported a usable score
func (m *SearchMatch) HasScore() bool {
	return m != nil && !math.IsNaN(m.Score) && !math.IsInf(m.Score, 0)
}

// MarshalJSON encodes an absent score as null
func (m SearchMatch) MarshalJSON() ([]byte, error) {
	type encoded struct {
		ID       DocumentID `json:"id"`
		Score    *float64   `json:"score"`
		Metadata *Metadata  `json:"metadata,omitempty"`
	}

	out := encoded{ID: m.ID, Metadata: m.Metadata}
	if m.HasScore() {
		score := m.Score
		out.Score = &score
	}
	return json.Marshal(out)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
