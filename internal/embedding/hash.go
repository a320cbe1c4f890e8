package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashProvider embeds text by feature hashing its lowercase word and
// character-trigram tokens into a fixed number of buckets. Vectors are
// L2-normalized so cosine similarity reflects token overlap.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hashing provider with the given dimensionality
func NewHashProvider(dimensions int) *HashProvider {
	return &HashProvider{dimensions: dimensions}
}

// GenerateEmbedding generates an embedding for the given text
func (p *HashProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dimensions)
	if p.dimensions == 0 {
		return vec, nil
	}

	for _, word := range tokenize(text) {
		p.add(vec, "w:"+word, 1)

		padded := "^" + word + "$"
		for i := 0; i+3 <= len(padded); i++ {
			p.add(vec, "t:"+padded[i:i+3], 0.5)
		}
	}

	normalize(vec)

	return vec, nil
}

func (p *HashProvider) add(vec []float32, token string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()

	idx := int(sum % uint64(p.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}

	vec[idx] += weight
}

func (p *HashProvider) GetDimensions() int {
	return p.dimensions
}

func (p *HashProvider) IsEnabled() bool {
	return p.dimensions > 0
}

func (p *HashProvider) GetName() string {
	return "hash"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
}
