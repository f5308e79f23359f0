package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// localDimensions is the vector size of the hash-based provider.
const localDimensions = 384

// Local is a deterministic, offline embedding provider. Vectors are derived
// from the SHA-256 of the text, so equal texts always embed identically.
// Useful for tests and for running without an API key; retrieval quality is
// limited to exact and near-duplicate matching.
type Local struct{}

// NewLocal creates a Local provider.
func NewLocal() *Local {
	return &Local{}
}

// Model returns the cache-keying name of the provider.
func (l *Local) Model() string {
	return "local-sha256"
}

// Dimensions returns the fixed local vector size.
func (l *Local) Dimensions() int {
	return localDimensions
}

// Embed derives a normalized vector from the text's hash.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	seed := sha256.Sum256([]byte(text))

	vector := make([]float32, localDimensions)
	var block [32]byte
	copy(block[:], seed[:])

	for i := 0; i < localDimensions; {
		block = sha256.Sum256(block[:])
		for j := 0; j+4 <= len(block) && i < localDimensions; j += 4 {
			bits := binary.LittleEndian.Uint32(block[j : j+4])
			// Map to [-1, 1).
			vector[i] = float32(int32(bits)) / float32(math.MaxInt32)
			i++
		}
	}

	normalize(vector)
	return vector, nil
}

// EmbedBatch embeds each text independently.
func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
