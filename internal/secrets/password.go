package secrets

import (
	"crypto/rand"
	"math/big"

	"github.com/agentstation/dirsync/pkg/errors"
)

// passwordChars omits characters that are easily confused, such as l, o, I, O and Q.
const passwordChars = "0123456789-.!#%/?+*abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPRSTUVWXYZ$&<>"

// MinPasswordLength is the shortest password GeneratePassword accepts.
const MinPasswordLength = 8

// GeneratePassword returns a random password of length characters.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", errors.NewValidationError("length", length, "password must have at least 8 characters")
	}
	limit := big.NewInt(int64(len(passwordChars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = passwordChars[n.Int64()]
	}
	return string(out), nil
}
