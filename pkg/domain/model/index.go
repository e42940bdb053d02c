package model

import "github.com/m-mizutani/goerr/v2"

// Metric is the similarity metric of a vector index
type Metric string

const (
	MetricCosine Metric = "cosine"
)

// IndexSpec describes a vector index to be provisioned
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
}

// Validate checks if the IndexSpec is valid
func (s IndexSpec) Validate() error {
	if s.Name == "" {
		return goerr.New("index name is required")
	}
	if s.Dimension <= 0 {
		return goerr.New("index dimension must be positive", goerr.V("dimension", s.Dimension))
	}
	if s.Metric != MetricCosine {
		return goerr.New("unsupported index metric", goerr.V("metric", s.Metric))
	}
	return nil
}
