package membership

import (
	"crypto/rand"
	"math/big"

	"github.com/sinkapp/sink/internal/model"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CodeGenerator returns a candidate apartment code.
type CodeGenerator func() (string, error)

// RandomCode generates a code of model.ApartmentCodeLength base-36 characters using crypto/rand.
func RandomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, model.ApartmentCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
