package helpers

import (
	"crypto/rand"
	"math/big"

	"github.com/alexedwards/argon2id"
)

// GenerateNumericCode returns a uniformly random decimal code of the given length.
func GenerateNumericCode(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

// CompareCode checks a submitted code against its argon2id hash.
func CompareCode(code string, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(code, hash)
}
