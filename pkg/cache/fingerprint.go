package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// fingerprintVersion is mixed into every digest so a change to the canonical
// encoding never collides with entries written by an older build.
const fingerprintVersion = "connector-hub/fingerprint/v1"

// Fingerprint returns the hex SHA-256 digest of the canonical request
// encoding. The request must already be normalized. Volatile fields (timeout,
// cache policy, credentials, request id, metadata) are not part of the
// encoding.
func Fingerprint(req *providers.CompletionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(fingerprintVersion))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
