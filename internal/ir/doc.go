// Package ir provides the literal value types carried by compiled queries.
//
// This package contains value definitions only. All other internal packages
// may import ir; ir imports only the errors package. This keeps the value
// layer at the bottom of the dependency graph.
//
// Key design constraints:
//   - NO float types anywhere - amounts are exact decimals (IRDecimal)
//   - Dates are calendar dates in ISO form (IRDate), never timestamps
//   - Canonical JSON (sorted keys, NFC strings) is the only serialization
//     used for fingerprints and golden snapshots
package ir
