package integrity

import (
	"fmt"
	"os"
	"strings"
)

const (
	envHMACKeys  = "EVOLVE_EVENT_HMAC_KEYS"
	envHMACKey   = "EVOLVE_EVENT_HMAC_KEY"
	envHMACKeyID = "EVOLVE_EVENT_HMAC_KEY_ID"
	defaultKeyID = "v1"
)

// KeyringFromEnv loads the HMAC keyring configuration from environment variables.
//
// EVOLVE_EVENT_HMAC_KEYS holds "id=secret" pairs separated by commas and
// takes precedence over the single EVOLVE_EVENT_HMAC_KEY. The active id
// comes from EVOLVE_EVENT_HMAC_KEY_ID and defaults to "v1".
func KeyringFromEnv() (*Keyring, error) {
	return KeyringFromSpec(os.Getenv(envHMACKeys), os.Getenv(envHMACKey), os.Getenv(envHMACKeyID))
}

// KeyringFromSpec builds a keyring from the raw values of the three
// environment variables.
func KeyringFromSpec(keySpec, singleKey, keyID string) (*Keyring, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		keyID = defaultKeyID
	}

	keySpec = strings.TrimSpace(keySpec)
	if keySpec == "" {
		raw := strings.TrimSpace(singleKey)
		if raw == "" {
			return nil, fmt.Errorf("%s is required", envHMACKey)
		}
		return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
	}

	keys := make(map[string][]byte)
	for _, entry := range strings.Split(keySpec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, value, ok := strings.Cut(entry, "=")
		id, value = strings.TrimSpace(id), strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("invalid %s entry", envHMACKeys)
		}
		keys[id] = []byte(value)
	}
	return NewKeyring(keys, keyID)
}
