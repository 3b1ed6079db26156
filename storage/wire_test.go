package storage

import (
	"math"
	"testing"

	"github.com/salience-gateway/gateway/heuristic"
)

func TestEncodeDecodeEmbeddingRoundTrip(t *testing.T) {
	in := []float64{0.1, -0.5, 3.25, 0, 1e-3}
	encoded := encodeEmbedding(in)
	out, err := decodeEmbedding(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d elements, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-6 {
			t.Errorf("element %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}

func TestDecodeEmbeddingRejectsInvalidBase64(t *testing.T) {
	if _, err := decodeEmbedding("not-valid-base64!!!"); err == nil {
		t.Fatal("expected an error for invalid base64 input")
	}
}

func TestDecodeEmbeddingRejectsNonMultipleOfFour(t *testing.T) {
	// Three raw bytes, base64-encoded — not a multiple of 4.
	if _, err := decodeEmbedding("YWJj"); err == nil {
		t.Fatal("expected an error for a byte length not divisible by 4")
	}
}

func TestParseEffectsExtractsOnlyKnownSubfields(t *testing.T) {
	payload := `{"salience":{"threat":0.8,"opportunity":0.2,"humor":0,"novelty":0.9,"goal_relevance":0.1,"social":0.3,"emotional":0.4,"actionability":0.5,"habituation":0.6},"provenance":{"model":"v3"}}`

	got := parseEffects(payload)

	if got.Threat != 0.8 || got.Novelty != 0.9 || got.Habituation != 0.6 {
		t.Fatalf("unexpected parsed effects: %+v", got)
	}
}

func TestParseEffectsMissingFieldsDefaultToZero(t *testing.T) {
	got := parseEffects(`{}`)
	if got != (heuristic.SalienceVector{}) {
		t.Fatalf("expected zero-value vector for empty payload, got %+v", got)
	}
}
