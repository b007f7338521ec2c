package forwarded

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Parameter names defined by RFC 7239 section 5.
const (
	ParamBy    = "by"
	ParamFor   = "for"
	ParamHost  = "host"
	ParamProto = "proto"
)

// Record is a single hop of the Forwarded header. Every parameter is
// optional; an empty value is treated the same as a missing one.
type Record struct {
	by         *Node
	forNode    *Node
	host       string
	proto      string
	extensions map[string]string
}

// RecordFromPairs builds a record from the pairs of one hop. Parameter names
// are matched case-insensitively. Parameters other than by, for, host and
// proto are kept as extensions.
//
// Tokens are visited in byte order, so when a hop spells one name in several
// cases the greatest spelling wins; the all lower-case form beats any
// variant with upper-case letters.
func RecordFromPairs(pairs Pairs) (*Record, error) {
	tokens := make([]string, 0, len(pairs))
	for token := range pairs {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	rec := &Record{}
	for _, token := range tokens {
		value := strings.TrimSpace(pairs[token])
		if value == "" {
			continue
		}
		switch name := strings.ToLower(token); name {
		case ParamBy:
			node, err := NewNode(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ParamBy, err)
			}
			rec.by = node
		case ParamFor:
			node, err := NewNode(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ParamFor, err)
			}
			rec.forNode = node
		case ParamHost:
			rec.host = value
		case ParamProto:
			rec.proto = value
		default:
			if token == "" {
				continue
			}
			if rec.extensions == nil {
				rec.extensions = make(map[string]string)
			}
			rec.extensions[name] = value
		}
	}
	return rec, nil
}

// By returns the interface the request came in on, or nil.
func (r *Record) By() *Node { return r.by }

// For returns the node that made the request, or nil.
func (r *Record) For() *Node { return r.forNode }

// Host returns the original Host request header as received by the proxy.
func (r *Record) Host() (string, bool) { return r.host, r.host != "" }

// Proto returns the scheme used to make the request.
func (r *Record) Proto() (string, bool) { return r.proto, r.proto != "" }

// Extensions returns parameters not defined by RFC 7239, keyed by their
// lowercase name. The map must not be modified.
func (r *Record) Extensions() map[string]string { return r.extensions }

// Empty reports whether the record carries no parameter at all.
func (r *Record) Empty() bool {
	return r.by == nil && r.forNode == nil && r.host == "" && r.proto == "" && len(r.extensions) == 0
}

type recordJSON struct {
	By         *Node             `json:"by,omitempty"`
	For        *Node             `json:"for,omitempty"`
	Host       string            `json:"host,omitempty"`
	Proto      string            `json:"proto,omitempty"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// MarshalJSON omits absent parameters.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		By:         r.by,
		For:        r.forNode,
		Host:       r.host,
		Proto:      r.proto,
		Extensions: r.extensions,
	})
}

// NewRecord builds a record from already classified parts. Empty host and
// proto are treated as absent.
func NewRecord(by, forNode *Node, host, proto string) *Record {
	return &Record{by: by, forNode: forNode, host: host, proto: proto}
}
