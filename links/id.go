package links

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Base62 alphabet keeps ids URL-safe without escaping.
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// IDLength matches the original link id width.
	IDLength = 10
)

// NewLinkID generates a cryptographically random, URL-safe link id.
func NewLinkID() (string, error) {
	result := make([]byte, IDLength)
	alphabetLen := big.NewInt(int64(len(idAlphabet)))

	for i := range result {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = idAlphabet[n.Int64()]
	}

	return string(result), nil
}
