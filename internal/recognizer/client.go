// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package recognizer talks to the face inference sidecar and assigns
// identities to the faces it returns.
//
// The sidecar owns the models: one multipart POST of a JPEG frame returns
// detected faces (embedding, bounding box, detection score) and detected
// bodies (bounding box, confidence). Identity assignment happens here, by
// cosine similarity against an enrolled gallery; the sidecar never learns
// who anyone is.
package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/metrics"
)

// Unknown is the identity assigned to a face that matches no enrolled
// person above the similarity threshold. Unknown faces drive the customer
// greeting path instead of attendance.
const Unknown = "Unknown"

// Customer is the sentinel identity for a confirmed visitor. Like Unknown
// it carries no attendance semantics and cannot be enrolled.
const Customer = "Customer"

// Face is one detected face with its identity embedding.
type Face struct {
	Embedding []float32
	BBox      geometry.BBox
	DetScore  float64
}

// Body is one detected person silhouette. Bodies gate the customer dwell
// logic; they carry no identity.
type Body struct {
	BBox       geometry.BBox
	Confidence float64
}

// Detections is the result of one sidecar call on a single frame.
type Detections struct {
	Faces  []Face
	Bodies []Body
}

// Client calls the inference sidecar over HTTP.
type Client struct {
	baseURL     string
	minDetScore float64
	client      *http.Client
}

// NewClient creates a sidecar client from configuration.
func NewClient(cfg config.RecognizerConfig) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.URL, "/"),
		minDetScore: cfg.MinDetScore,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// wire types for the sidecar response
type faceWire struct {
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

type bodyWire struct {
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
}

type detectResponse struct {
	Faces  []faceWire `json:"faces"`
	Bodies []bodyWire `json:"bodies"`
}

// Detect runs face and body detection on a JPEG frame.
// Faces below the configured minimum detection score are discarded here so
// downstream code never debounces on noise.
func (c *Client) Detect(ctx context.Context, frame []byte) (*Detections, error) {
	start := time.Now()

	body, err := c.postMultipartImage(ctx, "/detect", frame)
	metrics.RecordRecognizerCall("detect", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse detect response: %w", err)
	}

	det := &Detections{}
	for _, f := range resp.Faces {
		if f.DetScore < c.minDetScore {
			continue
		}
		det.Faces = append(det.Faces, Face{
			Embedding: f.Embedding,
			BBox:      geometry.FromSlice(f.BBox),
			DetScore:  f.DetScore,
		})
	}
	for _, b := range resp.Bodies {
		det.Bodies = append(det.Bodies, Body{
			BBox:       geometry.FromSlice(b.BBox),
			Confidence: b.Confidence,
		})
	}

	metrics.FacesDetected.Add(float64(len(det.Faces)))
	return det, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// from magic byte detection; the sidecar rejects untyped uploads.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sidecar error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
