// Package canon provides canonical JSON serialization and content-addressed
// identity for ssmgen records.
//
// Canonical form follows RFC 8785:
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - Numbers in shortest round-trip form (ES6 Number.prototype.toString)
//   - null, NaN and ±Inf are rejected
//
// Identities are SHA-256 over canonical bytes with a versioned domain prefix,
// so a generator configuration or a parameter set hashes identically across
// runs, platforms and worker schedules.
package canon
