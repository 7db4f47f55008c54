package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ContentHash is the dedup identity of a filing: a hex SHA-256 of the
// raw document bytes. Same bytes always produce the same key; it is an
// identity, not a security primitive.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ContentHashFile streams a file through the hasher without loading it
// into memory.
func ContentHashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file contents: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
