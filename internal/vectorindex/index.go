// Package vectorindex stores chunk embeddings per document handle and answers
// nearest-neighbour queries by cosine distance.
package vectorindex

import (
	"errors"
	"math"
	"sort"
)

// ErrChunksExist is returned by Insert when any record ID is already stored.
var ErrChunksExist = errors.New("chunks already exist in index")

type Metadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
}

type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

type Match struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float32  `json:"distance"`
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// rank orders matches by ascending distance, then chunk position, and keeps k.
func rank(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Metadata.ChunkIndex < matches[j].Metadata.ChunkIndex
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
