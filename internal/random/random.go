// Package random generates short random identifiers such as request IDs and database names.
package random

import (
	"crypto/rand"

	"github.com/myrjola/ace/internal/errors"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Bytes at or above this bound are discarded so that every letter is equally likely.
const unbiasedBound = 256 - 256%len(alphabet)

// Letters returns n cryptographically random ASCII letters.
func Letters(n uint) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1) //nolint:mnd // about a fifth of the bytes are rejected
	for uint(len(out)) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random bytes")
		}
		for _, b := range buf {
			if int(b) >= unbiasedBound {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if uint(len(out)) == n {
				break
			}
		}
	}
	return string(out), nil
}
