package sqlite

import "encoding/json"

// joinTags/splitTags store a commit's immutable tag list as a JSON array
// in a single column rather than a join table, since these tags never
// change after the commit is written (spec.md §4.5: mutable tags live in
// tag_annotations; this column is commit-time only).
func joinTags(tags []string) []byte {
	if len(tags) == 0 {
		return nil
	}
	b, _ := json.Marshal(tags)
	return b
}

func splitTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
