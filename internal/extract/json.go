package extract

import "encoding/json"

// jsonWalkResult mirrors the URLs+params shape of ExtractJS but also
// records object keys that sit next to a URL-like sibling value, since
// those keys are plausible parameter names (e.g. {"endpoint": "/api/x"}).
type jsonWalkResult struct {
	urls   []string
	params []string
}

// ExtractJSON parses a JSON document, walks every string leaf through the
// JS URL regex set, and records object keys adjacent to URL-like values as
// candidate parameter names. A parse error is not fatal — the caller
// treats it as a locally-recovered parse error; a document that fails to
// parse yields no URLs and no parameters.
func ExtractJSON(body []byte) (urls []string, params []string) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil
	}
	res := &jsonWalkResult{}
	walkJSON(doc, res)
	return res.urls, dedupeStrings(res.params)
}

func walkJSON(node any, res *jsonWalkResult) {
	switch v := node.(type) {
	case string:
		found, params := ExtractJS(`"` + v + `"`)
		res.urls = append(res.urls, found...)
		res.params = append(res.params, params...)
	case []any:
		for _, item := range v {
			walkJSON(item, res)
		}
	case map[string]any:
		for key, val := range v {
			if isURLLike(val) {
				res.params = append(res.params, key)
			}
			walkJSON(val, res)
		}
	}
}

func isURLLike(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	found, _ := ExtractJS(`"` + s + `"`)
	return len(found) > 0
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
