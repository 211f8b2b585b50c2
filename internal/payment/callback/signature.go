package callback

import (
	"crypto/sha1" //nolint:gosec // provider-mandated signature scheme
	"crypto/subtle"
	"encoding/base64"
)

// Sign computes the provider signature: base64(sha1(secret + data + secret)).
func Sign(secret, data string) string {
	sum := sha1.Sum([]byte(secret + data + secret)) //nolint:gosec // provider-mandated signature scheme
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify compares signature against the expected one in constant time.
func Verify(secret, data, signature string) bool {
	expected := Sign(secret, data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
