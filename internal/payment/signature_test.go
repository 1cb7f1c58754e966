package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignerMatchesGatewayScheme(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte("order_A|pay_1"))
	want := hex.EncodeToString(mac.Sum(nil))

	s := NewSigner("s3cret")
	assert.Equal(t, want, s.Sign("order_A", "pay_1"))
	assert.True(t, s.Verify("order_A", "pay_1", want))
}

func TestSignerRejectsTampering(t *testing.T) {
	s := NewSigner("s3cret")
	sig := s.Sign("order_A", "pay_1")

	assert.False(t, s.Verify("order_B", "pay_1", sig))
	assert.False(t, s.Verify("order_A", "pay_2", sig))
	assert.False(t, s.Verify("order_A", "pay_1", sig[:len(sig)-1]))
	assert.False(t, s.Verify("order_A", "pay_1", ""))
	assert.False(t, NewSigner("other").Verify("order_A", "pay_1", sig))
}
