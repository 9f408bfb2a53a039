package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sethvargo/go-retry"
)

// ErrEmbeddingFailed wraps non-retryable upstream failures.
var ErrEmbeddingFailed = errors.New("embedding: request failed")

// HTTPConfig configures a text-embeddings-inference compatible client.
type HTTPConfig struct {
	// BaseURL of the server, e.g. http://localhost:8080.
	BaseURL string

	// Model name reported by Model().
	Model string

	// Dimension of the model's vectors.
	Dimension int

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Client defaults to a client with a 30s timeout.
	Client *http.Client

	// MaxRetries bounds retries of transient failures. Default 5.
	MaxRetries uint64

	// Backoff is the first Fibonacci backoff step. Default 1s.
	Backoff time.Duration
}

// HTTP embeds text through POST {BaseURL}/embed.
type HTTP struct {
	cfg HTTPConfig
}

// NewHTTP validates cfg and returns a client.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding: base URL required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTP{cfg: cfg}, nil
}

func (c *HTTP) Dimension() int { return c.cfg.Dimension }

func (c *HTTP) Model() string { return c.cfg.Model }

type embedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

func (c *HTTP) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	return c.embed(ctx, texts)
}

func (c *HTTP) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *HTTP) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	var vectors [][]float32
	b := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewFibonacci(c.cfg.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		vecs, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		vectors = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *HTTP) post(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(fmt.Errorf("embedding: transport: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return vectors, nil
}
