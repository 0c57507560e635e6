package auth

import (
	"crypto/rand"
	"math/big"

	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

const (
	generatedPasswordLength = 16

	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%*-_+?"
)

// randomPasswordGenerator builds reset passwords from crypto/rand.
// Every password contains at least one character of each class.
type randomPasswordGenerator struct {
	length int
}

// NewRandomPasswordGenerator returns the PasswordGenerator used for password resets.
func NewRandomPasswordGenerator() service.PasswordGenerator {
	return &randomPasswordGenerator{length: generatedPasswordLength}
}

// Generate returns a fresh random password.
func (g *randomPasswordGenerator) Generate() (string, error) {
	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	all := lowerChars + upperChars + digitChars + symbolChars

	out := make([]byte, 0, g.length)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < g.length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	i, err := randomIndex(len(alphabet))
	if err != nil {
		return 0, err
	}

	return alphabet[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, errors.Wrap(err, "failed to read random bytes")
	}

	return int(v.Int64()), nil
}
