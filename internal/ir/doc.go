// Package ir provides the value model and compiled catalog records for typekit.
//
// This package contains data types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numeric options and statics are int64
//   - Catalog records are plain data: methods are referenced by builtin name,
//     never by Go function value, so a catalog can be hashed, stored and
//     replayed
//   - All JSON tags use snake_case
//   - Content-addressed identities use RFC 8785 canonical JSON
package ir
