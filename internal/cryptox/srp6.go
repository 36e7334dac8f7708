// Package cryptox implements the SRP6 registration data used to store
// account credentials: a random salt and a verifier v = g^x mod N from which
// the password cannot be recovered.
//
// Parameters and byte order follow the game client: N is the 256-bit safe
// prime below, g = 7, H is SHA-1, x = H(salt || H(USER ":" PASS)) read as a
// little-endian integer, and v is stored as 32 little-endian bytes.
package cryptox

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const (
	SaltLength     = 32
	VerifierLength = 32
)

type (
	Salt     [SaltLength]byte
	Verifier [VerifierLength]byte
)

var (
	srpN, _ = new(big.Int).SetString("894B645E89E1535BBDAD5B8B290650530801B18EBFBF5E8FAB3C82872A3E9BB7", 16)
	srpG    = big.NewInt(7)
)

// randRead is a seam for crypto/rand in tests.
var randRead = rand.Read

// MakeRegistrationData draws a fresh salt and derives the verifier for the
// given credentials. Callers must normalize username and password first.
func MakeRegistrationData(username, password string) (Salt, Verifier, error) {
	var salt Salt
	if _, err := randRead(salt[:]); err != nil {
		return Salt{}, Verifier{}, fmt.Errorf("generate salt: %w", err)
	}
	return salt, CalculateVerifier(username, password, salt), nil
}

// CalculateVerifier computes v = g^H(salt || H(username ":" password)) mod N.
func CalculateVerifier(username, password string, salt Salt) Verifier {
	inner := sha1.Sum([]byte(username + ":" + password))

	h := sha1.New()
	h.Write(salt[:])
	h.Write(inner[:])
	x := fromLittleEndian(h.Sum(nil))

	return toVerifier(new(big.Int).Exp(srpG, x, srpN))
}

// CheckLogin reports whether the credentials produce the stored verifier.
// The comparison is constant time.
func CheckLogin(username, password string, salt Salt, verifier Verifier) bool {
	candidate := CalculateVerifier(username, password, salt)
	return subtle.ConstantTimeCompare(candidate[:], verifier[:]) == 1
}

func fromLittleEndian(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// v < N < 2^256, so it always fits.
func toVerifier(v *big.Int) Verifier {
	var be, le Verifier
	v.FillBytes(be[:])
	for i := range be {
		le[VerifierLength-1-i] = be[i]
	}
	return le
}
