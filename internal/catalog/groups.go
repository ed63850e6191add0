package catalog

import (
	"strings"

	"github.com/litescript/ls-planetarium/internal/errs"
)

// Group is a named set of stars, such as an indigenous constellation.
type Group struct {
	Name  string
	Stars []string
}

// DefaultGroups returns the Tupi-Guarani constellations built around the
// Southern Cross and the Pointers.
func DefaultGroups() []Group {
	return []Group{
		{
			Name:  "Homem Velho (Tuya'i)",
			Stars: []string{"Beta Centauri", "Alpha Centauri"},
		},
		{
			Name:  "Ema (Guyra Nhandu)",
			Stars: []string{"Alpha Crucis", "Beta Crucis", "Gamma Crucis", "Delta Crucis", "Epsilon Crucis"},
		},
	}
}

// ExpandGroups returns the star names of the selected groups in order,
// without repeats. Group names match case-insensitively.
func ExpandGroups(groups []Group, selected []string) ([]string, error) {
	var names []string
	seen := map[string]bool{}

	for _, sel := range selected {
		g, ok := findGroup(groups, sel)
		if !ok {
			return nil, errs.Newf(errs.CodeInvalidProjectionConfig, sel,
				"unknown constellation; known: %s", strings.Join(groupNames(groups), ", "))
		}
		for _, star := range g.Stars {
			key := strings.ToLower(strings.TrimSpace(star))
			if seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, star)
		}
	}
	return names, nil
}

func findGroup(groups []Group, name string) (Group, bool) {
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g.Name), strings.TrimSpace(name)) {
			return g, true
		}
	}
	return Group{}, false
}

func groupNames(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}
