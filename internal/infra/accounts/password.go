package accounts

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	passwordLength  = 20
	passwordLetters = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#%^*-_+="
)

// GeneratePassword produces a strong random password locally, before any
// provider call. Guaranteed to contain at least one letter, digit and
// symbol.
func GeneratePassword() (string, error) {
	alphabet := passwordLetters + passwordDigits + passwordSymbols
	for {
		var b strings.Builder
		for i := 0; i < passwordLength; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(alphabet[n.Int64()])
		}
		password := b.String()
		if strings.ContainsAny(password, passwordLetters) &&
			strings.ContainsAny(password, passwordDigits) &&
			strings.ContainsAny(password, passwordSymbols) {
			return password, nil
		}
	}
}
