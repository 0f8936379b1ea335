package signature

import "crypto/hmac"

// Verify reports whether sig is the valid signature for payload under the
// subscriber's secret and the sender's claimed timestamp. The comparison is
// constant time.
func Verify(payload []byte, secret string, timestamp int64, sig string) bool {
	expected := Sign(payload, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}
