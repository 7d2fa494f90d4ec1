package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// generateVerificationCode returns a 4-digit numeric code. The code proves
// the physical rider/driver meeting before a trip starts.
func generateVerificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("verification code: %v", err))
	}
	return fmt.Sprintf("%04d", 1000+n.Int64())
}
