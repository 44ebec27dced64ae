// Package jsonnav implements the dotted-path JSON navigator shared by
// assertions and extractors: split on ".", descend into object keys
// and "key[index]" array segments, never panicking or erroring — any
// failure simply means "not found".
package jsonnav

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Navigate resolves a dotted path (e.g. "items[0].name") against a
// JSON document body. It reports ok=false if the document does not
// parse as JSON or the path does not resolve — callers never need to
// distinguish the two; "not found" covers both per §4.4.
func Navigate(body string, path string) (gjson.Result, bool) {
	if !gjson.Valid(body) {
		return gjson.Result{}, false
	}

	converted, ok := convertPath(path)
	if !ok {
		return gjson.Result{}, false
	}

	result := gjson.Get(body, converted)
	if !result.Exists() {
		return gjson.Result{}, false
	}
	return result, true
}

// convertPath rewrites the navigator's "key[idx]" bracket notation
// into gjson's native dotted array-index form ("key.idx"), segment by
// segment, matching the source's per-segment split-on-"[" algorithm.
func convertPath(path string) (string, bool) {
	segments := strings.Split(path, ".")
	out := make([]string, 0, len(segments)*2)

	for _, seg := range segments {
		open := strings.Index(seg, "[")
		if open < 0 {
			out = append(out, gjsonEscape(seg))
			continue
		}
		closeIdx := strings.LastIndex(seg, "]")
		if closeIdx < open {
			return "", false
		}

		key := seg[:open]
		idxStr := seg[open+1 : closeIdx]
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return "", false
		}

		if key != "" {
			out = append(out, gjsonEscape(key))
		}
		out = append(out, strconv.Itoa(idx))
	}

	return strings.Join(out, "."), true
}

// gjsonEscape escapes gjson's own special characters in a raw segment
// name so keys containing ".", "*", "?", or "\" navigate literally.
func gjsonEscape(segment string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`.`, `\.`,
		`*`, `\*`,
		`?`, `\?`,
	)
	return replacer.Replace(segment)
}

// ValueToString stringifies a resolved value the way the source's
// json_value_to_string does: strings are returned bare (no quotes),
// null becomes the literal "null", and everything else (numbers,
// bools, arrays, objects) is rendered via its canonical JSON text.
func ValueToString(result gjson.Result) string {
	switch result.Type {
	case gjson.String:
		return result.Str
	case gjson.Null:
		return "null"
	default:
		return result.Raw
	}
}
