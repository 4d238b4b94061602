package medication

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/pkg/textnorm"
)

// ReconcileCatalog returns the catalog entries to create for the medication
// names on a prescription. A name is skipped when it is blank, already in
// known, already emitted earlier in items, or found by lookup. Names are
// compared by textnorm.Key.
//
// Emitted entries carry the prescription's dosage as description, zero
// stock and price, and the "low stock" status that marks them for reorder.
// lookup may be nil. A lookup failure is logged and the item is emitted
// anyway; the insert that follows is the remaining safeguard.
func ReconcileCatalog(ctx context.Context, items []CatalogItem, known []*Medication, lookup NameLookup) []*Medication {
	seen := make(map[string]struct{}, len(known)+len(items))
	for _, m := range known {
		if k := textnorm.Key(m.Name); k != "" {
			seen[k] = struct{}{}
		}
	}

	var out []*Medication
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		key := textnorm.Key(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if lookup != nil {
			_, err := lookup.FindByName(ctx, name)
			switch {
			case err == nil:
				continue
			case !errors.Is(err, domain.ErrNotFound):
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("medication", name).
					Msg("catalog lookup failed, creating entry anyway")
			}
		}

		out = append(out, &Medication{
			Name:        name,
			Description: strings.TrimSpace(item.Dosage),
			Category:    DefaultCategory,
			Form:        DefaultForm,
			Stock:       0,
			Price:       0,
			Status:      StatusLowStock,
		})
	}
	return out
}
