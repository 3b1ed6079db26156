package storage

import (
	"context"
	"errors"
	"sync"
)

// MockBackend is an in-memory Backend for unit tests. Block, if non-nil,
// is received from before every QueryMatchingHeuristics and
// GenerateEmbedding call — until the test closes it those calls stay
// open, which lets a test assert that the caller released its lock
// before the call returned. A nil Block never delays a call.
type MockBackend struct {
	mu sync.Mutex

	Heuristics    []Heuristic
	Embedding     []float64
	EmbeddingErr  error
	QueryErr      error
	HealthErr     error
	Block         <-chan struct{}

	QueryCalls int
	EmbedCalls int
}

func (m *MockBackend) QueryMatchingHeuristics(ctx context.Context, traceID string, eventText string, minConfidence float64, limit int, sourceFilter string) ([]Heuristic, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	m.QueryCalls++
	m.mu.Unlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if limit > 0 && len(m.Heuristics) > limit {
		return m.Heuristics[:limit], nil
	}
	return m.Heuristics, nil
}

func (m *MockBackend) GenerateEmbedding(ctx context.Context, traceID string, text string) ([]float64, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	m.EmbedCalls++
	m.mu.Unlock()

	if m.EmbeddingErr != nil {
		return nil, m.EmbeddingErr
	}
	if m.Embedding == nil {
		return nil, errors.New("mock: no embedding configured")
	}
	return m.Embedding, nil
}

func (m *MockBackend) ListTopHeuristics(ctx context.Context, limit int) ([]Heuristic, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if limit > 0 && len(m.Heuristics) > limit {
		return m.Heuristics[:limit], nil
	}
	return m.Heuristics, nil
}

func (m *MockBackend) Healthy(ctx context.Context) error {
	return m.HealthErr
}
