package forwarded

import (
	"sort"
	"strings"
)

// String serializes the header back to RFC 7239 syntax. Values that are not
// plain tokens are written as quoted strings.
//
// An empty hop writes nothing between its separators. When the last hop is
// empty a closing "," is added, since the parser only counts a trailing
// empty hop that is terminated by a comma.
func (h *Header) String() string {
	var sb strings.Builder
	for i, rec := range h.records {
		if i > 0 {
			sb.WriteString(", ")
		}
		rec.writeTo(&sb)
	}
	if n := len(h.records); n > 0 && h.records[n-1].Empty() {
		sb.WriteByte(',')
	}
	return sb.String()
}

// String serializes a single hop.
func (r *Record) String() string {
	var sb strings.Builder
	r.writeTo(&sb)
	return sb.String()
}

func (r *Record) writeTo(sb *strings.Builder) {
	wrote := false
	param := func(name, value string) {
		if wrote {
			sb.WriteByte(';')
		}
		wrote = true
		sb.WriteString(name)
		sb.WriteByte('=')
		writeValue(sb, value)
	}

	if r.forNode != nil {
		param(ParamFor, r.forNode.raw)
	}
	if r.by != nil {
		param(ParamBy, r.by.raw)
	}
	if r.host != "" {
		param(ParamHost, r.host)
	}
	if r.proto != "" {
		param(ParamProto, r.proto)
	}

	names := make([]string, 0, len(r.extensions))
	for name := range r.extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		param(name, r.extensions[name])
	}
}

func writeValue(sb *strings.Builder, value string) {
	if value != "" && isToken(value) {
		sb.WriteString(value)
		return
	}
	sb.WriteByte('"')
	for _, c := range value {
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	sb.WriteByte('"')
}

// isToken reports whether s consists only of tchar (RFC 7230 section 3.2.6).
func isToken(s string) bool {
	for _, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", c):
		default:
			return false
		}
	}
	return true
}
