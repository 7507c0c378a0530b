// Package id provides identifier generation for call records.
//
// This package generates:
//   - UUID v4 record identifiers
//   - W3C-compliant trace IDs (32 hex characters) shared by a call tree
//   - W3C-compliant span IDs (16 hex characters)
//
// ID generation uses sync.Pool to minimize allocations in hot paths.
// All functions are safe for concurrent use.
package id
