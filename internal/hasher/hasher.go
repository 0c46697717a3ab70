// Package hasher computes content digests used to break duplicate-detection ties.
package hasher

import (
	"context"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Blake3 hashes payloads with BLAKE3-256.
type Blake3 struct{}

// Digest returns the hex encoded BLAKE3-256 digest of data.
func (Blake3) Digest(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Sum returns the hex encoded BLAKE3-256 digest of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
