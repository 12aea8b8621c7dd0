package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is returned when a checkout signature does not match.
var ErrInvalidSignature = errors.New("razorpay: invalid payment signature")

// GenerateSignature returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func GenerateSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature compares signature with the expected value in
// constant time.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) error {
	expected := GenerateSignature(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
