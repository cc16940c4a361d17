package ygggo_mockdb

import (
	"strings"
)

// parseNamed converts SQL with @name or :name placeholders to positional ? and
// returns the names in order. Quoted text, @@variables and :: casts are left alone.
func parseNamed(query string) (bound string, names []string) {
	var b strings.Builder
	b.Grow(len(query))
	inSingle, inDouble, inBack := false, false, false
	i := 0
	for i < len(query) {
		ch := query[i]
		switch ch {
		case '\\':
			// MySQL escapes: the next byte never ends a quoted string
			if (inSingle || inDouble) && i+1 < len(query) {
				b.WriteString(query[i : i+2])
				i += 2
				continue
			}
		case '\'':
			inSingle = !inSingle && !inDouble && !inBack
		case '"':
			inDouble = !inDouble && !inSingle && !inBack
		case '`':
			inBack = !inBack && !inSingle && !inDouble
		case '@', ':':
			if inSingle || inDouble || inBack {
				break
			}
			// @@var and ::type
			if i+1 < len(query) && query[i+1] == ch {
				b.WriteString(query[i : i+2])
				i += 2
				continue
			}
			j := i + 1
			for j < len(query) && isIdentByte(query[j]) {
				j++
			}
			if j > i+1 {
				names = append(names, query[i+1:j])
				b.WriteByte('?')
				i = j
				continue
			}
		}
		b.WriteByte(ch)
		i++
	}
	return b.String(), names
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

// bindNamed rewrites query for drivers that only take positional arguments.
// Every placeholder must match a parameter name, ignoring case and the
// leading '@', ':' or '$'. A name may be used more than once.
func bindNamed(query string, params []*SQLParameter) (string, []any, error) {
	bound, names := parseNamed(query)
	byName := make(map[string]*SQLParameter, len(params))
	for _, p := range params {
		if n := normalizeParamName(p.Name()); n != "" {
			byName[n] = p
		}
	}
	args := make([]any, len(names))
	for i, n := range names {
		p, ok := byName[normalizeParamName(n)]
		if !ok {
			return "", nil, newDataAccessError("bind", "no parameter named %q", n)
		}
		args[i] = p.Value()
	}
	return bound, args, nil
}

func normalizeParamName(name string) string {
	return strings.ToLower(strings.TrimLeft(name, "@:$"))
}
