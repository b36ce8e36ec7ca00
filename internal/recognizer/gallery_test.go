// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package recognizer

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeGallery(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gallery.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write gallery: %v", err)
	}
	return path
}

const testGallery = `{
	"model": "buffalo_l",
	"dim": 3,
	"identities": [
		{"name": "Alice", "embeddings": [[1, 0, 0], [0.9, 0.1, 0]]},
		{"name": "Bob", "embeddings": [[0, 1, 0]]}
	]
}`

func TestLoadGallery(t *testing.T) {
	path := writeGallery(t, testGallery)

	g, err := LoadGallery(path)
	if err != nil {
		t.Fatalf("LoadGallery() failed: %v", err)
	}

	if g.Len() != 2 {
		t.Errorf("expected 2 identities, got %d", g.Len())
	}

	names := g.Names()
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestLoadGalleryErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid json",
			content: `{not json`,
		},
		{
			name:    "empty identity name",
			content: `{"dim": 2, "identities": [{"name": "", "embeddings": [[1, 0]]}]}`,
		},
		{
			name:    "reserved name Unknown",
			content: `{"dim": 2, "identities": [{"name": "Unknown", "embeddings": [[1, 0]]}]}`,
		},
		{
			name:    "reserved name Customer",
			content: `{"dim": 2, "identities": [{"name": "Customer", "embeddings": [[1, 0]]}]}`,
		},
		{
			name:    "dimension mismatch",
			content: `{"dim": 3, "identities": [{"name": "Alice", "embeddings": [[1, 0]]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeGallery(t, tt.content)
			if _, err := LoadGallery(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadGalleryMissingFile(t *testing.T) {
	if _, err := LoadGallery(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadGalleryEmptyIsValid(t *testing.T) {
	path := writeGallery(t, `{"dim": 3, "identities": []}`)

	g, err := LoadGallery(path)
	if err != nil {
		t.Fatalf("LoadGallery() failed on empty gallery: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("expected empty gallery, got %d identities", g.Len())
	}

	// Everything matches as Unknown
	result := g.Match([]float32{1, 0, 0}, 0.32)
	if result.Known || result.Name != Unknown {
		t.Errorf("expected Unknown match on empty gallery, got %+v", result)
	}
}

func TestMatch(t *testing.T) {
	path := writeGallery(t, testGallery)
	g, err := LoadGallery(path)
	if err != nil {
		t.Fatalf("LoadGallery() failed: %v", err)
	}

	tests := []struct {
		name      string
		embedding []float32
		threshold float64
		wantName  string
		wantKnown bool
	}{
		{
			name:      "exact match",
			embedding: []float32{1, 0, 0},
			threshold: 0.32,
			wantName:  "Alice",
			wantKnown: true,
		},
		{
			name:      "close match via second embedding",
			embedding: []float32{0.95, 0.05, 0},
			threshold: 0.32,
			wantName:  "Alice",
			wantKnown: true,
		},
		{
			name:      "other identity",
			embedding: []float32{0, 1, 0},
			threshold: 0.32,
			wantName:  "Bob",
			wantKnown: true,
		},
		{
			name:      "below threshold",
			embedding: []float32{0, 0, 1},
			threshold: 0.32,
			wantName:  Unknown,
			wantKnown: false,
		},
		{
			name:      "strict threshold rejects near match",
			embedding: []float32{0.7, 0.7, 0.1},
			threshold: 0.99,
			wantName:  Unknown,
			wantKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Match(tt.embedding, tt.threshold)
			if result.Name != tt.wantName {
				t.Errorf("Match() name = %q, want %q (similarity %v)",
					result.Name, tt.wantName, result.Similarity)
			}
			if result.Known != tt.wantKnown {
				t.Errorf("Match() known = %v, want %v", result.Known, tt.wantKnown)
			}
		})
	}
}

func TestReload(t *testing.T) {
	path := writeGallery(t, testGallery)
	g, err := LoadGallery(path)
	if err != nil {
		t.Fatalf("LoadGallery() failed: %v", err)
	}

	updated := `{
		"model": "buffalo_l",
		"dim": 3,
		"identities": [
			{"name": "Carol", "embeddings": [[0, 0, 1]]}
		]
	}`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite gallery: %v", err)
	}

	if err := g.Reload(path); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	if g.Len() != 1 || g.Names()[0] != "Carol" {
		t.Errorf("expected reloaded gallery with Carol, got %v", g.Names())
	}

	result := g.Match([]float32{0, 0, 1}, 0.32)
	if !result.Known || result.Name != "Carol" {
		t.Errorf("expected Carol after reload, got %+v", result)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled is identical", []float32{1, 1}, []float32{5, 5}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
