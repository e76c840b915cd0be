package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainType    = "typekit/type/v1"
	DomainCatalog = "typekit/catalog/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TypeHash computes the content-addressed identity of a type spec.
// Two specs with the same declared content hash identically regardless of
// map iteration order.
func TypeHash(spec TypeSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.toIR())
	if err != nil {
		return "", fmt.Errorf("TypeHash %q: failed to marshal: %w", spec.Name, err)
	}
	return hashWithDomain(DomainType, canonical), nil
}

// CatalogHash computes the content-addressed identity of a whole catalog.
// Declaration order of types is significant; it decides derivation order.
func CatalogHash(cat Catalog) (string, error) {
	mixins := make(IRArray, len(cat.Mixins))
	for i, m := range cat.Mixins {
		mixins[i] = m.toIR()
	}
	types := make(IRArray, len(cat.Types))
	for i, t := range cat.Types {
		types[i] = t.toIR()
	}

	canonical, err := MarshalCanonical(IRObject{
		"ir_version": IRString(IRVersion),
		"mixins":     mixins,
		"types":      types,
	})
	if err != nil {
		return "", fmt.Errorf("CatalogHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, canonical), nil
}

// MustCatalogHash is like CatalogHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCatalogHash(cat Catalog) string {
	h, err := CatalogHash(cat)
	if err != nil {
		panic(err)
	}
	return h
}
