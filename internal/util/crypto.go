package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GeneratePIN returns length independently-random decimal digits. No
// uniqueness check against other PINs on the same lock is made; the vendor
// enforces validity-window exclusivity, not string uniqueness.
func GeneratePIN(length int) string {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; treat that as unrecoverable.
			panic(err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits)
}

// MaskPIN hides a PIN in log output.
func MaskPIN(pin string) string {
	if len(pin) <= 1 {
		return "****"
	}
	return pin[:1] + "***"
}
