package scraper

import "github.com/user/spidermap/internal/entity"

// Finalize drops every record whose IdentityKey was already seen, keeping
// harvest order. Records are copied, never modified.
func Finalize(records []entity.Record) []entity.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]entity.Record, 0, len(records))
	for _, r := range records {
		key := r.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
