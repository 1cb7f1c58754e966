package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer produces and checks the HMAC-SHA256 signatures the gateway attaches
// to payment callbacks.  The signed message is "<order id>|<payment id>"
// and the signature travels hex encoded.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer { return &Signer{secret: []byte(secret)} }

// Sign returns the hex encoded signature for the order/payment pair.
func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it with the supplied one in
// constant time.
func (s *Signer) Verify(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(s.Sign(orderID, paymentID)), []byte(signature))
}
