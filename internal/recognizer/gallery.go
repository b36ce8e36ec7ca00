// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package recognizer

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Identity is one enrolled person. Multiple embeddings per person are
// normal; enrollment computes one per reference photo and a sighting
// matches against the best of them.
type Identity struct {
	Name       string      `json:"name"`
	Embeddings [][]float32 `json:"embeddings"`
}

// galleryFile is the on-disk gallery format written by the enroll tool.
type galleryFile struct {
	Model      string     `json:"model"`
	Dim        int        `json:"dim"`
	Identities []Identity `json:"identities"`
}

// Gallery holds the enrolled identities and answers match queries.
// Safe for concurrent use; Reload swaps the identity set atomically.
type Gallery struct {
	mu         sync.RWMutex
	identities []Identity
	model      string
	dim        int
}

// MatchResult is the outcome of matching one embedding against the gallery.
type MatchResult struct {
	// Name is the matched identity, or Unknown when nothing cleared the
	// threshold.
	Name string

	// Similarity is the best cosine similarity found, even when it was
	// below threshold.
	Similarity float64

	// Known reports whether Name refers to an enrolled identity.
	Known bool
}

// LoadGallery reads the enrolled gallery from disk. An empty gallery is
// not an error: the kiosk still runs, every face just matches as Unknown.
func LoadGallery(path string) (*Gallery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gallery %s: %w", path, err)
	}

	var file galleryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse gallery %s: %w", path, err)
	}

	for _, id := range file.Identities {
		if id.Name == "" {
			return nil, fmt.Errorf("gallery %s: identity with empty name", path)
		}
		if id.Name == Unknown || id.Name == Customer {
			return nil, fmt.Errorf("gallery %s: %q is reserved and cannot be enrolled", path, id.Name)
		}
		for _, emb := range id.Embeddings {
			if file.Dim > 0 && len(emb) != file.Dim {
				return nil, fmt.Errorf("gallery %s: %s has embedding of dim %d, expected %d",
					path, id.Name, len(emb), file.Dim)
			}
		}
	}

	g := &Gallery{
		identities: file.Identities,
		model:      file.Model,
		dim:        file.Dim,
	}

	metrics.GalleryIdentities.Set(float64(len(file.Identities)))

	if len(file.Identities) == 0 {
		logging.Warn().Str("path", path).Msg("Gallery is empty, all faces will match as Unknown")
	} else {
		logging.Info().
			Str("path", path).
			Str("model", file.Model).
			Int("identities", len(file.Identities)).
			Msg("Gallery loaded")
	}

	return g, nil
}

// Match finds the enrolled identity most similar to the embedding.
// Below the threshold the result is Unknown, with the best similarity
// still reported for diagnostics.
func (g *Gallery) Match(embedding []float32, threshold float64) MatchResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	best := MatchResult{Name: Unknown, Similarity: -1}
	for _, id := range g.identities {
		for _, enrolled := range id.Embeddings {
			sim := cosineSimilarity(embedding, enrolled)
			if sim > best.Similarity {
				best.Similarity = sim
				best.Name = id.Name
			}
		}
	}

	if best.Similarity >= threshold && best.Name != Unknown {
		best.Known = true
	} else {
		best.Name = Unknown
		best.Known = false
	}

	metrics.RecordMatch(best.Known)
	return best
}

// Names returns the enrolled identity names.
func (g *Gallery) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, len(g.identities))
	for i, id := range g.identities {
		names[i] = id.Name
	}
	return names
}

// Len returns the number of enrolled identities.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.identities)
}

// Reload replaces the gallery contents from disk. Used after enrollment
// changes so the kiosk picks up new staff without a restart.
func (g *Gallery) Reload(path string) error {
	fresh, err := LoadGallery(path)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.identities = fresh.identities
	g.model = fresh.model
	g.dim = fresh.dim
	g.mu.Unlock()

	return nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 for
// mismatched or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity
}
