package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainConfig   = "ssmgen/config/v1"
	DomainParamSet = "ssmgen/paramset/v1"
	DomainModel    = "ssmgen/model/v1"
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

// Hash returns the domain-separated SHA-256 of v's canonical form.
func Hash(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// ConfigHash identifies a generator configuration.
// Two configurations that differ only in key order or map iteration order
// hash identically.
func ConfigHash(cfg any) (string, error) {
	return Hash(DomainConfig, cfg)
}

// ParamSetID computes the content id of one parameter set within a run.
func ParamSetID(runID string, index int, theta []float64) (string, error) {
	return Hash(DomainParamSet, map[string]any{
		"run_id": runID,
		"index":  index,
		"theta":  theta,
	})
}

// MustParamSetID is like ParamSetID but panics on error.
// Use only in tests or when theta is known to be finite.
func MustParamSetID(runID string, index int, theta []float64) string {
	id, err := ParamSetID(runID, index, theta)
	if err != nil {
		panic(err)
	}
	return id
}
