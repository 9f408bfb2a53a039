package vecstore

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/hupe1980/vecstore/embedding"
)

// tableProvider returns fixed vectors for known texts and hashes the rest.
type tableProvider struct {
	model      string
	dim        int
	table      map[string][]float32
	fallback   *embedding.Hashing
	docCalls   atomic.Int32
	queryCalls atomic.Int32
}

func newTableProvider(model string, dim int, table map[string][]float32) *tableProvider {
	return &tableProvider{
		model:    model,
		dim:      dim,
		table:    table,
		fallback: embedding.NewHashing(model, dim),
	}
}

func scenarioProvider() *tableProvider {
	return newTableProvider("scenario-model", 4, map[string][]float32{
		"cat on a mat":                {1, 0, 0, 0},
		"feline animal":               {0.9, 0.1, 0, 0},
		"dog in a fog":                {0, 1, 0, 0},
		"quantum entanglement basics": {0, 0, 1, 0},
	})
}

func (p *tableProvider) embed(text string) []float32 {
	if v, ok := p.table[text]; ok {
		return append([]float32(nil), v...)
	}
	v, _ := p.fallback.EmbedQuery(context.Background(), text)
	return v
}

func (p *tableProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	p.docCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embed(t)
	}
	return out, nil
}

func (p *tableProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	p.queryCalls.Add(1)
	return p.embed(text), nil
}

func (p *tableProvider) Dimension() int { return p.dim }
func (p *tableProvider) Model() string  { return p.model }

var errProvider = errors.New("provider unavailable")

// brokenProvider fails or returns malformed vectors.
type brokenProvider struct {
	dim  int
	mode string
}

func (p *brokenProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		switch p.mode {
		case "error":
			return nil, errProvider
		case "nan":
			v := make([]float32, p.dim)
			v[0] = float32(math.NaN())
			out[i] = v
		case "short":
			out[i] = make([]float32, p.dim-1)
		}
	}
	return out, nil
}

func (p *brokenProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (p *brokenProvider) Dimension() int { return p.dim }
func (p *brokenProvider) Model() string  { return "broken-" + p.mode }
