package domain

import "fmt"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model               string
	Dimensions          int
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns the default configuration tuned for
// bge-multilingual-gemma2.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:               "BAAI/bge-multilingual-gemma2",
		Dimensions:          3584,
		DocumentInstruction: "Represent this document for semantic search",
		QueryInstruction:    "Represent this query for retrieving similar documents",
	}
}

// IndexTag derives the embedding-model version tag the vector index is
// stamped with. Vectors produced under a different tag are rejected until
// the corpus is reindexed.
func (c VectorConfig) IndexTag() string {
	return fmt.Sprintf("%s:%d", c.Model, c.Dimensions)
}
