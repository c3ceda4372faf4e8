// Package sphere owns spherical geometry and the sky-position spatial index.
//
// Responsibilities: unit-vector conversion, great-circle separations,
// local tangent-plane offsets, the HEALPix RING tessellation and the
// cell-bucketed Index that answers angular-radius neighbour queries.
// Key types: Index, Healpix.
//
// Angles crossing the package boundary are radians unless a function name
// says otherwise (UnitVector and LonLat work in degrees).
//
// Dependency rule: inside this module sphere depends only on monitoring.
package sphere
