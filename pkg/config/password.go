// pkg/config/password.go

package config

import (
	"crypto/rand"
	"math/big"

	cerr "github.com/cockroachdb/errors"
)

const (
	passwordLength  = 20
	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GeneratePassword returns a fixed-length alphanumeric password from a
// cryptographically secure source. Alphanumeric only so the value survives
// every context it is templated into (SQL, .env, shell-adjacent files)
// without quoting concerns.
func GeneratePassword() (string, error) {
	buf := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", cerr.Wrap(err, "reading secure random source")
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf), nil
}
