package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// GenerateHMAC signs fields with secret. Each field is length-prefixed so no
// two distinct field lists hash the same input.
func GenerateHMAC(secret string, fields ...string) string {
	return hex.EncodeToString(sign(secret, fields))
}

// VerifyHMAC reports whether mac is the signature of fields under secret
func VerifyHMAC(secret, mac string, fields ...string) bool {
	expected, err := hex.DecodeString(mac)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sign(secret, fields))
}

func sign(secret string, fields []string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	for _, f := range fields {
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	return h.Sum(nil)
}
