package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecret returns a fresh signing secret: "whsec_" followed by 32
// random bytes in hex. A secret is minted once at subscription creation and
// shown to the caller exactly once.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("gateway: failed to generate random secret: " + err.Error())
	}
	return "whsec_" + hex.EncodeToString(b)
}
