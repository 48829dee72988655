package jwtx

import (
	"crypto/ed25519"
	"fmt"
	"sort"
	"sync"
)

// KeySet holds the Ed25519 public keys tokens may be verified against,
// indexed by kid.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]ed25519.PublicKey)}
}

// AddSigner registers the public half of s.
func (ks *KeySet) AddSigner(s *EdDSASigner) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[s.kid] = s.pub
}

// AddJWK registers a published OKP/Ed25519 key.
func (ks *KeySet) AddJWK(j JWK) error {
	pub, err := j.PublicKey()
	if err != nil {
		return err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[j.Kid] = pub
	return nil
}

func (ks *KeySet) Get(kid string) (ed25519.PublicKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	pub, ok := ks.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}
	return pub, nil
}

// IsReady reports whether at least one key is loaded.
func (ks *KeySet) IsReady() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys) > 0
}

// PublicJWKS returns every key as a JWKS, sorted by kid.
func (ks *KeySet) PublicJWKS() JWKS {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := JWKS{Keys: make([]JWK, 0, len(ks.keys))}
	for kid, pub := range ks.keys {
		out.Keys = append(out.Keys, NewEd25519JWK(kid, pub))
	}
	sort.Slice(out.Keys, func(i, j int) bool { return out.Keys[i].Kid < out.Keys[j].Kid })
	return out
}
