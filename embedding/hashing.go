package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hupe1980/vecstore/distance"
)

// Hashing is an offline provider based on signed feature hashing.
// Each lower-cased token lands in one of Dimension buckets with a ±1 sign
// taken from its FNV-1a hash; the result is L2-normalized.
type Hashing struct {
	model string
	dim   int
}

// NewHashing returns a hashing provider. dim must be positive.
func NewHashing(model string, dim int) *Hashing {
	if dim <= 0 {
		panic("embedding: hashing dimension must be positive")
	}
	return &Hashing{model: model, dim: dim}
}

func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Model() string { return h.model }

func (h *Hashing) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *Hashing) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *Hashing) embed(text string) []float32 {
	v := make([]float32, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	hasher := fnv.New32a()
	for _, tok := range tokens {
		hasher.Reset()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum32()

		bucket := int(sum % uint32(h.dim))
		if sum&(1<<31) != 0 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	distance.NormalizeL2InPlace(v)
	return v
}
