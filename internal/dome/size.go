// Package dome turns projected stars into perforations on a printable dome
// shell and assembles the scene graph.
package dome

import (
	"math"

	"github.com/litescript/ls-planetarium/internal/errs"
)

// DefaultBrightestMag is the magnitude mapped to the largest perforation.
// Sirius, the brightest star, is -1.46.
const DefaultBrightestMag = -1.5

// SizeScale maps apparent magnitude to a perforation radius.
type SizeScale struct {
	LimitMag     float64 // Magnitude mapped to MinRadius (faintest kept)
	BrightestMag float64 // Magnitude mapped to MaxRadius
	MinRadius    float64
	MaxRadius    float64
}

// DefaultSizeScale gives 1 mm holes at magnitude 6 and 3 mm holes at -1.5.
func DefaultSizeScale() SizeScale {
	return SizeScale{
		LimitMag:     6,
		BrightestMag: DefaultBrightestMag,
		MinRadius:    1,
		MaxRadius:    3,
	}
}

// Validate rejects scales that would not be monotonic.
func (s SizeScale) Validate() error {
	if s.MinRadius <= 0 || math.IsNaN(s.MinRadius) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "minHoleRadius", "must be > 0, got %v", s.MinRadius)
	}
	if s.MaxRadius < s.MinRadius || math.IsNaN(s.MaxRadius) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "maxHoleRadius",
			"must be >= minHoleRadius (%v), got %v", s.MinRadius, s.MaxRadius)
	}
	if !(s.BrightestMag < s.LimitMag) {
		return errs.Newf(errs.CodeInvalidProjectionConfig, "brightestMag",
			"must be below the magnitude limit (%v), got %v", s.LimitMag, s.BrightestMag)
	}
	return nil
}

// Radius returns the perforation radius for a star of magnitude mag.
// Brighter (smaller) magnitudes never give smaller radii; values outside
// [BrightestMag, LimitMag] clamp to the ends.
func (s SizeScale) Radius(mag float64) float64 {
	if mag >= s.LimitMag {
		return s.MinRadius
	}
	if mag <= s.BrightestMag {
		return s.MaxRadius
	}
	f := (s.LimitMag - mag) / (s.LimitMag - s.BrightestMag)
	return s.MinRadius + f*(s.MaxRadius-s.MinRadius)
}
