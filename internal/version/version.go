// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - S3 publishing, CUE config with schema versioning, progress view
// 0.2.0 - Gaia DR3 TAP catalog, Sesame name resolution, star groups
// 0.1.0 - Initial release: built-in bright stars, equidistant dome, OpenSCAD output
