package fakepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PlaceholderSignature is sent when no shared secret is configured. The
// engine's development mode accepts it as-is.
const PlaceholderSignature = "SimulatedSignature"

// Signer produces webhook signatures for simulated payment callbacks.
type Signer struct {
	Secret string
}

// Sign returns the hex HMAC-SHA256 of body under the shared secret, or the
// placeholder value when no secret is set.
func (s Signer) Sign(body []byte) string {
	if s.Secret == "" {
		return PlaceholderSignature
	}
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature for body. Comparison is
// constant time.
func (s Signer) Verify(body []byte, sig string) bool {
	return hmac.Equal([]byte(s.Sign(body)), []byte(sig))
}
