package config

import "time"

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, openaiAPIKey, geminiProjectID string, dimension int) *LLM {
	return &LLM{
		provider:          provider,
		openaiAPIKey:      openaiAPIKey,
		geminiProjectID:   geminiProjectID,
		geminiLocation:    "us-central1",
		dimension:         dimension,
		embeddingInterval: time.Millisecond,
	}
}

// NewVectorIndexForTest creates a VectorIndex config for testing purposes
func NewVectorIndexForTest(backend, indexName, projectID, milvusAddress string) *VectorIndex {
	return &VectorIndex{
		backend:       backend,
		indexName:     indexName,
		projectID:     projectID,
		milvusAddress: milvusAddress,
		pollInterval:  time.Millisecond,
		pollTimeout:   time.Second,
	}
}

// NewScraperForTest creates a Scraper config for testing purposes
func NewScraperForTest(mode, apiKey string) *Scraper {
	return &Scraper{
		mode:     mode,
		apiKey:   apiKey,
		baseURL:  "http://localhost",
		timeout:  time.Second,
		interval: time.Millisecond,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewResearchForTest creates a Research config for testing purposes
func NewResearchForTest(path string) *Research {
	return &Research{path: path}
}
