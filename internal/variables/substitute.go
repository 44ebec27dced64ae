package variables

import "strings"

// Substitute replaces ${name} placeholders in input using values from
// vars. It scans left to right:
//   - On "${", it reads until the next "}"; if the name is found in
//     vars, the placeholder is replaced with its value; if not found,
//     the placeholder is left syntactically intact.
//   - If a "${" is never closed (input ends first), the consumed
//     prefix ("${partial") is emitted verbatim with no closing brace.
//   - A literal "$" not followed by "{" is copied verbatim.
//
// Substituting with an empty store is the identity function on any
// string containing no "${".
func Substitute(input string, vars map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}

	var out strings.Builder
	out.Grow(len(input))

	runes := []rune(input)
	i := 0
	n := len(runes)

	for i < n {
		c := runes[i]
		if c != '$' {
			out.WriteRune(c)
			i++
			continue
		}

		// c == '$'
		if i+1 >= n || runes[i+1] != '{' {
			out.WriteRune(c)
			i++
			continue
		}

		// Consume "${"
		start := i
		i += 2

		var name strings.Builder
		closed := false
		for i < n {
			if runes[i] == '}' {
				closed = true
				i++
				break
			}
			name.WriteRune(runes[i])
			i++
		}

		if !closed {
			// Ran out of input before a closing brace: emit the
			// consumed prefix verbatim, with no closing brace.
			out.WriteString(string(runes[start:i]))
			continue
		}

		if value, ok := vars[name.String()]; ok {
			out.WriteString(value)
		} else {
			// Not found: restore the placeholder verbatim.
			out.WriteString(string(runes[start:i]))
		}
	}

	return out.String()
}
