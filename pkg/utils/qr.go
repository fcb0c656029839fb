package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

var qrSecret []byte

// SetQRSecret configures the key used for hand-off hashes. Must be called
// once at startup; a rotated secret invalidates all previously issued codes.
func SetQRSecret(key string) {
	qrSecret = []byte(key)
}

// GenerateQRHash derives the deterministic hand-off code for an order. The
// code is bound to the public order id, so a QR printed for one order can
// never confirm delivery of another.
func GenerateQRHash(orderID string) (string, error) {
	if len(qrSecret) == 0 {
		return "", fmt.Errorf("qr secret not set")
	}
	mac := hmac.New(sha256.New, qrSecret)
	mac.Write([]byte(orderID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyQRHash reports whether supplied matches the order's hand-off code.
// Constant-time compare; any error or mismatch fails closed.
func VerifyQRHash(orderID, supplied string) bool {
	expected, err := GenerateQRHash(orderID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(supplied))
}
