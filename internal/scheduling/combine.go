package scheduling

import "github.com/noah-isme/uni-timetable-api/internal/models"

type mergeKey struct {
	name  string
	venue string
}

// Merge combines timetables of the same shape (weekday-keyed or date-keyed)
// into one. Entries are concatenated per key in the order the tables are
// supplied; an entry whose (name, venue) pair already appears under that key
// is dropped, so the first occurrence wins and merging a table with itself
// is a no-op.
func Merge(tables ...models.Timetable) models.Timetable {
	merged := models.Timetable{}
	seen := map[string]map[mergeKey]bool{}
	for _, table := range tables {
		for key, entries := range table {
			if seen[key] == nil {
				seen[key] = map[mergeKey]bool{}
				merged[key] = []models.Entry{}
			}
			for _, entry := range entries {
				k := mergeKey{name: entry.Name, venue: entry.Venue}
				if seen[key][k] {
					continue
				}
				seen[key][k] = true
				merged[key] = append(merged[key], entry)
			}
		}
	}
	return merged
}
