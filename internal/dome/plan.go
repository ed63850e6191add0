package dome

import (
	"fmt"

	"github.com/litescript/ls-planetarium/internal/errs"
	"github.com/litescript/ls-planetarium/internal/projection"
)

// DefaultCoincidenceTolerance is the distance in model units under which two
// perforations count as the same spot. It matches the resolution of the
// rendered scene, so distinct perforations never print identical positions.
const DefaultCoincidenceTolerance = 1e-4

// Perforation is one star's primitive on the shell.
type Perforation struct {
	Point  projection.Point
	Radius float64
}

// PlanOptions controls how projected stars become perforations.
type PlanOptions struct {
	Scale                SizeScale
	AllowCoincident      bool
	CoincidenceTolerance float64
}

// DefaultPlanOptions returns the default size scale and coincidence check.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		Scale:                DefaultSizeScale(),
		CoincidenceTolerance: DefaultCoincidenceTolerance,
	}
}

// Plan is the set of perforations to emit plus the data-quality warnings
// raised while building it.
type Plan struct {
	Perforations []Perforation
	Warnings     []*errs.Error
}

// PlanPerforations sizes every point and removes duplicates. A repeated ID
// keeps its first occurrence. Unless AllowCoincident is set, two points
// closer than the tolerance keep the brighter star (the earlier one on a
// tie). Every removal is reported in Warnings. Output order follows input
// order.
func PlanPerforations(points []projection.Point, opts PlanOptions) Plan {
	var plan Plan
	seen := make(map[string]bool, len(points))

	for _, pt := range points {
		if seen[pt.ID] {
			plan.Warnings = append(plan.Warnings, errs.Newf(errs.CodeDuplicateStarIdentifier, pt.ID,
				"star listed more than once; keeping the first entry"))
			continue
		}
		seen[pt.ID] = true

		perf := Perforation{Point: pt, Radius: opts.Scale.Radius(pt.Mag)}

		if !opts.AllowCoincident {
			if i := findCoincident(plan.Perforations, pt, opts.CoincidenceTolerance); i >= 0 {
				kept := plan.Perforations[i].Point
				if pt.Mag < kept.Mag {
					plan.Warnings = append(plan.Warnings, coincidentWarning(kept.ID, pt.ID))
					plan.Perforations[i] = perf
				} else {
					plan.Warnings = append(plan.Warnings, coincidentWarning(pt.ID, kept.ID))
				}
				continue
			}
		}

		plan.Perforations = append(plan.Perforations, perf)
	}

	return plan
}

func findCoincident(perfs []Perforation, pt projection.Point, tol float64) int {
	for i, p := range perfs {
		if p.Point.Position.Distance(pt.Position) <= tol {
			return i
		}
	}
	return -1
}

func coincidentWarning(dropped, kept string) *errs.Error {
	return errs.New(errs.CodeCoincidentPerforation, dropped,
		fmt.Sprintf("lands on the same spot as %s; dropping it", kept))
}
