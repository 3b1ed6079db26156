/*
Package storage is the gateway's connection to the remote heuristic
store consulted on every L0 cache miss. The production Backend wraps an
HTTP client in a circuit breaker (github.com/sony/gobreaker) so that a
struggling storage tier fails fast instead of letting the fast path pile
up goroutines behind a slow dependency — per the concurrency model, the
service's single mutex must never be held while one of these calls is
in flight, so a slow call here only costs one request's latency, not a
stall of the whole cache.
*/
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/salience-gateway/gateway/heuristic"
)

// Heuristic is the wire shape of a heuristic as returned by the storage
// backend's query endpoint — condition embedding already decoded, and
// effects pulled out of an opaque effects_json blob via gjson so that
// any non-salience subfields the storage service may carry are simply
// never touched rather than silently dropped by a strict struct decode.
type Heuristic struct {
	ID                 uuid.UUID
	Name               string
	ConditionText      string
	ConditionEmbedding []float64
	Effects            heuristic.SalienceVector
	Confidence         float64
	CreatedAtMs        int64
}

// Backend is the storage-tier contract the scorer falls back to on a
// cache miss. Every method takes the caller's trace id so it can be
// forwarded as a header, and a context that bounds the call. HTTPBackend
// additionally caps every call at ConnectTimeout+RequestTimeout on top
// of whatever deadline the caller's context carries.
//
// QueryMatchingHeuristics is keyed by event text rather than an
// embedding: storage does its own text-search-based ranking (e.g.
// full-text search), independent of and faster than embedding cosine
// similarity, which is exactly why the scorer falls back to it when an
// embedding could not be produced at all.
type Backend interface {
	QueryMatchingHeuristics(ctx context.Context, traceID string, eventText string, minConfidence float64, limit int, sourceFilter string) ([]Heuristic, error)
	GenerateEmbedding(ctx context.Context, traceID string, text string) ([]float64, error)
	ListTopHeuristics(ctx context.Context, limit int) ([]Heuristic, error)
	Healthy(ctx context.Context) error
}

// HTTPBackend is the production Backend, talking JSON-over-HTTP to a
// remote storage service.
type HTTPBackend struct {
	baseURL        string
	client         *http.Client
	connectTimeout time.Duration
	requestTimeout time.Duration
	breaker        *gobreaker.CircuitBreaker
}

// Config configures an HTTPBackend.
type Config struct {
	BaseURL            string
	ConnectTimeout     time.Duration
	RequestTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerResetAfter  time.Duration
}

// NewHTTPBackend builds a production storage backend. The breaker opens
// after BreakerMaxFailures consecutive failures and stays open for
// BreakerResetAfter before allowing a single probe request through.
func NewHTTPBackend(cfg Config) *HTTPBackend {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "storage-backend",
		Timeout: cfg.BreakerResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
	})
	return &HTTPBackend{
		baseURL:        cfg.BaseURL,
		connectTimeout: cfg.ConnectTimeout,
		requestTimeout: cfg.RequestTimeout,
		breaker:        breaker,
		client: &http.Client{
			Timeout: cfg.ConnectTimeout + cfg.RequestTimeout,
		},
	}
}

type queryRequest struct {
	EventText     string  `json:"event_text"`
	MinConfidence float64 `json:"min_confidence"`
	Limit         int     `json:"limit"`
	SourceFilter  string  `json:"source_filter,omitempty"`
}

type queryResponseHeuristic struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	ConditionText      string  `json:"condition_text"`
	ConditionEmbedding string  `json:"condition_embedding"`
	EffectsJSON        string  `json:"effects_json"`
	Confidence         float64 `json:"confidence"`
	CreatedAtMs        int64   `json:"created_at_ms"`
}

type queryResponse struct {
	Heuristics []queryResponseHeuristic `json:"heuristics"`
}

// QueryMatchingHeuristics asks storage for the top `limit` heuristics
// matching eventText via its own text-search ranking (e.g. full-text
// search over condition_text), pre-filtered by minConfidence and
// optionally narrowed by sourceFilter.
func (b *HTTPBackend) QueryMatchingHeuristics(ctx context.Context, traceID string, eventText string, minConfidence float64, limit int, sourceFilter string) ([]Heuristic, error) {
	body, err := json.Marshal(queryRequest{EventText: eventText, MinConfidence: minConfidence, Limit: limit, SourceFilter: sourceFilter})
	if err != nil {
		return nil, fmt.Errorf("marshal query request: %w", err)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.doJSON(ctx, traceID, http.MethodPost, "/v1/heuristics/query", body)
	})
	if err != nil {
		return nil, fmt.Errorf("query matching heuristics: %w", err)
	}

	var resp queryResponse
	if err := json.Unmarshal(result.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	out := make([]Heuristic, 0, len(resp.Heuristics))
	for _, h := range resp.Heuristics {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		embedding, err := decodeEmbedding(h.ConditionEmbedding)
		if err != nil {
			continue
		}
		out = append(out, Heuristic{
			ID:                 id,
			Name:               h.Name,
			ConditionText:      h.ConditionText,
			ConditionEmbedding: embedding,
			Effects:            parseEffects(h.EffectsJSON),
			Confidence:         h.Confidence,
			CreatedAtMs:        h.CreatedAtMs,
		})
	}
	return out, nil
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding string `json:"embedding"`
}

// GenerateEmbedding asks storage to embed arbitrary event text.
func (b *HTTPBackend) GenerateEmbedding(ctx context.Context, traceID string, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.doJSON(ctx, traceID, http.MethodPost, "/v1/embeddings", body)
	})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(result.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return decodeEmbedding(resp.Embedding)
}

// ListTopHeuristics asks storage for its highest-confidence heuristics,
// used by the background cache refresher to keep the cache warm
// independent of request traffic.
func (b *HTTPBackend) ListTopHeuristics(ctx context.Context, limit int) ([]Heuristic, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.doJSON(ctx, "", http.MethodGet, fmt.Sprintf("/v1/heuristics/top?limit=%d", limit), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("list top heuristics: %w", err)
	}

	var resp queryResponse
	if err := json.Unmarshal(result.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("decode top heuristics response: %w", err)
	}

	out := make([]Heuristic, 0, len(resp.Heuristics))
	for _, h := range resp.Heuristics {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		embedding, err := decodeEmbedding(h.ConditionEmbedding)
		if err != nil {
			continue
		}
		out = append(out, Heuristic{
			ID:                 id,
			Name:               h.Name,
			ConditionText:      h.ConditionText,
			ConditionEmbedding: embedding,
			Effects:            parseEffects(h.EffectsJSON),
			Confidence:         h.Confidence,
			CreatedAtMs:        h.CreatedAtMs,
		})
	}
	return out, nil
}

// Healthy performs a lightweight reachability probe used by the
// background health poller.
func (b *HTTPBackend) Healthy(ctx context.Context) error {
	_, err := b.doJSON(ctx, "", http.MethodGet, "/healthz", nil)
	return err
}

func (b *HTTPBackend) doJSON(ctx context.Context, traceID, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.connectTimeout+b.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID != "" {
		req.Header.Set("x-salience-trace-id", traceID)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// parseEffects reads only the nine salience fields out of an effects
// payload using gjson, leaving any other subfields the storage service
// may carry (versioning metadata, provenance, future fields) untouched
// and unparsed rather than forcing a strict struct decode to fail on them.
func parseEffects(effectsJSON string) heuristic.SalienceVector {
	get := func(path string) float64 {
		return gjson.Get(effectsJSON, path).Float()
	}
	return heuristic.SalienceVector{
		Threat:        get("salience.threat"),
		Opportunity:   get("salience.opportunity"),
		Humor:         get("salience.humor"),
		Novelty:       get("salience.novelty"),
		GoalRelevance: get("salience.goal_relevance"),
		Social:        get("salience.social"),
		Emotional:     get("salience.emotional"),
		Actionability: get("salience.actionability"),
		Habituation:   get("salience.habituation"),
	}
}
