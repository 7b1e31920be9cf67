package directory

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MinPasswordLength is the shortest password GeneratePassword produces.
const MinPasswordLength = 12

var (
	upperChars  = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ")
	lowerChars  = []byte("abcdefghijkmnopqrstuvwxyz")
	digitChars  = []byte("23456789")
	symbolChars = []byte("!@#$%^&*-_=+?")
	allChars    = concat(upperChars, lowerChars, digitChars, symbolChars)
)

// GeneratePassword returns a random password with at least one upper case letter,
// one lower case letter, one digit and one symbol.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	out := make([]byte, 0, length)
	for _, class := range [][]byte{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	for len(out) < length {
		c, err := pick(allChars)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates, so the mandatory classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func pick(chars []byte) (byte, error) {
	i, err := randIndex(len(chars))
	if err != nil {
		return 0, err
	}

	return chars[i], nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}

	return int(v.Int64()), nil
}

func concat(sets ...[]byte) []byte {
	var out []byte
	for _, s := range sets {
		out = append(out, s...)
	}

	return out
}
