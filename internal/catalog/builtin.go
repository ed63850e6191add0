package catalog

import (
	"context"

	"github.com/litescript/ls-planetarium/internal/astro"
	"github.com/litescript/ls-planetarium/internal/logging"
)

// BuiltinSource answers queries from the embedded bright star table.
type BuiltinSource struct {
	catalog astro.StarCatalog
	log     *logging.Logger
}

// NewBuiltinSource creates an offline source. A nil logger discards output.
func NewBuiltinSource(log *logging.Logger) *BuiltinSource {
	if log == nil {
		log = logging.Discard()
	}
	return &BuiltinSource{catalog: astro.DefaultStarCatalog(), log: log}
}

// Name implements Source.
func (b *BuiltinSource) Name() string {
	return "built-in bright star table"
}

// Query implements Source. Names match star IDs or Bayer designations, and
// a named star carries the requested name as its ID.
func (b *BuiltinSource) Query(ctx context.Context, q Query) ([]astro.Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(q.Names) == 0 {
		stars := b.catalog.Brighter(q.MagnitudeLimit)
		if q.MaxRows > 0 && len(stars) > q.MaxRows {
			stars = stars[:q.MaxRows]
		}
		return stars, nil
	}

	var stars []astro.Star
	for _, name := range q.Names {
		s, ok := b.catalog.Lookup(name)
		if !ok {
			b.log.Warn("%s: not in the built-in table, skipping", name)
			continue
		}
		if s.Mag > q.MagnitudeLimit {
			b.log.Debug("%s: magnitude %.2f fainter than limit %.2f, skipping", name, s.Mag, q.MagnitudeLimit)
			continue
		}
		s.ID = name
		stars = append(stars, s)
	}
	return stars, nil
}
