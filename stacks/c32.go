// Package stacks implements the c32check address codec used by the Stacks
// chain and the recipient byte layout expected by the xReserve bridge.
package stacks

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// c32Alphabet is the Crockford base32 alphabet without I, L, O and U.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var c32Index = func() map[rune]int {
	m := make(map[rune]int, len(c32Alphabet))
	for i, r := range c32Alphabet {
		m[r] = i
	}
	return m
}()

// c32Normalize folds the ambiguous characters the alphabet excludes:
// lowercase is uppercased, O reads as 0, L and I read as 1.
func c32Normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	s = strings.ReplaceAll(s, "I", "1")
	return s
}

// c32Decode decodes a c32 string to bytes. Each leading zero character
// stands for one leading zero byte; the remainder is the big-endian
// base32 value.
func c32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)

	leadingZeros := 0
	for leadingZeros < len(s) && s[leadingZeros] == '0' {
		leadingZeros++
	}

	n := new(big.Int)
	for _, r := range s[leadingZeros:] {
		v, ok := c32Index[r]
		if !ok {
			return nil, fmt.Errorf("invalid c32 character %q", r)
		}
		n.Mul(n, big.NewInt(32))
		n.Add(n, big.NewInt(int64(v)))
	}

	body := n.Bytes()
	out := make([]byte, leadingZeros+len(body))
	copy(out[leadingZeros:], body)
	return out, nil
}

// c32Checksum is the first four bytes of a double SHA-256 over the version
// byte followed by the payload.
func c32Checksum(version byte, payload []byte) [4]byte {
	first := sha256.Sum256(append([]byte{version}, payload...))
	second := sha256.Sum256(first[:])

	var sum [4]byte
	copy(sum[:], second[:4])
	return sum
}
