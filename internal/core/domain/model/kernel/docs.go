// Package kernel provides core domain primitives used throughout the
// dispatch domain model.
//
// The package includes:
//   - UUID: A value object for unique identifiers with validation and comparison
//   - GeoPoint: A value object for WGS84 coordinates with great-circle distance
//
// These primitives enforce domain invariants and validation rules, ensuring
// that domain objects are always in a valid state. They are immutable and
// thread-safe, making them suitable for concurrent use.
package kernel
