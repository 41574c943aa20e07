// Package vector provides embedding conversion and similarity primitives.
// Embeddings arrive from models as float32, are held in memory as float64,
// and are persisted through pgvector's text representation.
package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToFloat64s widens a model-produced float32 vector for in-memory use.
// Returns an empty slice for nil input.
func ToFloat64s(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

// ToFloat32s narrows a vector for pgvector storage.
func ToFloat32s(src []float64) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out
}

// Cosine computes the cosine similarity of two vectors. It returns 0 when
// either vector is empty, the dimensions differ, or either magnitude is
// zero, so callers never have to guard against unvectorized records.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeString renders a vector in pgvector text form: "[0.1,0.2,...]".
// Values are formatted with full float64 precision so the round trip
// through the database is lossless.
func EncodeString(vec []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// DecodeString parses pgvector text form back into a vector. "[]" decodes
// to an empty (non-nil) slice.
func DecodeString(s string) ([]float64, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, fmt.Errorf("vector: malformed text %q", s)
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return []float64{}, nil
	}

	parts := strings.Split(inner, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("vector: component %d of %q: %w", i, s, err)
		}
		out[i] = v
	}
	return out, nil
}
