package storage

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// encodeEmbedding packs a float64 embedding as a little-endian float32
// byte stream, base64-encoded for JSON transport — the wire format the
// storage backend expects for both condition and event embeddings.
func encodeEmbedding(v []float64) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// decodeEmbedding reverses encodeEmbedding. A byte length not divisible
// by 4 is a fatal per-message error — there is no way to recover a
// partial float, so this returns an error rather than truncating.
func decodeEmbedding(s string) ([]float64, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode embedding base64: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding byte length %d is not a multiple of 4", len(buf))
	}
	out := make([]float64, len(buf)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}
