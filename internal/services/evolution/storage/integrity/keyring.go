package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrKeyringRequired indicates a missing keyring.
	ErrKeyringRequired = errors.New("hmac keyring is not configured")
	// ErrUnknownKeyID indicates a seal made with a key the ring does not hold.
	ErrUnknownKeyID = errors.New("seal key id is unknown")
	// ErrSealMismatch indicates a seal that does not match its signature.
	ErrSealMismatch = errors.New("seal mismatch")
)

// Keyring stores root HMAC keys and the active key id.
type Keyring struct {
	keys        map[string][]byte
	activeKeyID string
}

// NewKeyring constructs a keyring for sealing and verification.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("hmac keys are required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, fmt.Errorf("active hmac key id is required")
	}
	if _, ok := keys[activeKeyID]; !ok {
		return nil, fmt.Errorf("active hmac key id is not configured")
	}
	cloned := make(map[string][]byte, len(keys))
	for id, key := range keys {
		if len(key) == 0 {
			return nil, fmt.Errorf("hmac key %q is empty", id)
		}
		cloned[id] = slices.Clone(key)
	}
	return &Keyring{keys: cloned, activeKeyID: activeKeyID}, nil
}

// ActiveKeyID returns the configured sealing key id.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.activeKeyID
}

// KeyIDs lists the key ids the ring can verify, sorted.
func (k *Keyring) KeyIDs() []string {
	if k == nil {
		return nil
	}
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Seal seals a lineage event signature with the active key.
func (k *Keyring) Seal(lineageID, signature string) (string, string, error) {
	if k == nil {
		return "", "", ErrKeyringRequired
	}
	keyID := k.activeKeyID
	key, err := deriveLineageKey(k.keys[keyID], lineageID)
	if err != nil {
		return "", "", err
	}
	return hmacSHA256Hex(key, signature), keyID, nil
}

// VerifySeal validates a seal made by Seal with any key in the ring.
func (k *Keyring) VerifySeal(lineageID, signature, seal, keyID string) error {
	if k == nil {
		return ErrKeyringRequired
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return fmt.Errorf("%w: seal key id is required", ErrUnknownKeyID)
	}
	rootKey, ok := k.keys[keyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKeyID, keyID)
	}
	key, err := deriveLineageKey(rootKey, lineageID)
	if err != nil {
		return err
	}
	expected := hmacSHA256Hex(key, signature)
	if !hmac.Equal([]byte(expected), []byte(seal)) {
		return ErrSealMismatch
	}
	return nil
}

func deriveLineageKey(rootKey []byte, lineageID string) ([]byte, error) {
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return nil, fmt.Errorf("lineage id is required")
	}
	key, err := hkdf.Key(sha256.New, rootKey, nil, "lineage:"+lineageID, 32)
	if err != nil {
		return nil, fmt.Errorf("derive lineage key: %w", err)
	}
	return key, nil
}

func hmacSHA256Hex(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
