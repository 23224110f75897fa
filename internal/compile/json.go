package compile

import "encoding/json"

// decodeJSONMap unmarshals a raw JSON object into dst, used for the
// generation-config blob attached to a commit (spec.md §4.8 step 7).
func decodeJSONMap(raw []byte, dst *map[string]any) error {
	return json.Unmarshal(raw, dst)
}
