package forwarded

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// NodeKind classifies the value of a by or for parameter (RFC 7239 section 6).
type NodeKind int

const (
	KindIPv4 NodeKind = iota
	KindIPv6
	KindUnknown
	KindIdentifier
)

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindIPv4:
		return "ipv4"
	case KindIPv6:
		return "ipv6"
	case KindUnknown:
		return "unknown"
	case KindIdentifier:
		return "identifier"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// unknownNode is the literal used by proxies that do not know (or will not
// tell) the address of the previous hop.
const unknownNode = "unknown"

// Node is a by or for value. The kind is derived once from the raw token;
// everything else is computed on demand.
type Node struct {
	raw  string
	kind NodeKind
}

// NewNode classifies raw and returns the resulting node.
//
// Classification is first-match in this order:
//  1. leading "_" is an obfuscated identifier
//  2. the literal "unknown"
//  3. leading "[" is an IPv6 literal
//  4. anything else is treated as IPv4
//
// The address itself is not validated. Returns ErrEmptyNodeName if raw is empty.
func NewNode(raw string) (*Node, error) {
	if raw == "" {
		return nil, ErrEmptyNodeName
	}
	return &Node{raw: raw, kind: classify(raw)}, nil
}

func classify(raw string) NodeKind {
	switch {
	case raw[0] == '_':
		return KindIdentifier
	case raw == unknownNode:
		return KindUnknown
	case raw[0] == '[':
		return KindIPv6
	default:
		return KindIPv4
	}
}

// Raw returns the token exactly as it appeared in the header.
func (n *Node) Raw() string { return n.raw }

// Kind returns the node classification.
func (n *Node) Kind() NodeKind { return n.kind }

func (n *Node) IsIP() bool         { return n.kind == KindIPv4 || n.kind == KindIPv6 }
func (n *Node) IsV4() bool         { return n.kind == KindIPv4 }
func (n *Node) IsV6() bool         { return n.kind == KindIPv6 }
func (n *Node) IsUnknown() bool    { return n.kind == KindUnknown }
func (n *Node) IsIdentifier() bool { return n.kind == KindIdentifier }

// IP returns the address portion of an IPv4 or IPv6 node, without brackets
// or port. It returns ErrNotAnIPAddress for identifier and unknown nodes.
func (n *Node) IP() (string, error) {
	switch n.kind {
	case KindIPv4:
		addr, _ := splitLastColon(n.raw)
		return addr, nil
	case KindIPv6:
		addr, _ := n.splitBracketed()
		return addr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotAnIPAddress, n.raw)
}

// Addr parses the address portion with net/netip. Unlike IP it rejects
// literals that are lexically shaped like an address but are not one.
func (n *Node) Addr() (netip.Addr, error) {
	ip, err := n.IP()
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid %s address %q: %w", n.kind, ip, err)
	}
	return addr, nil
}

// Port returns the port that follows the address, if any. Extraction is
// purely syntactic and works for every kind. Obfuscated ports (RFC 7239
// section 6.3) and values above 65535 are reported as absent.
func (n *Node) Port() (int, bool) {
	var port string
	if n.kind == KindIPv6 {
		_, port = n.splitBracketed()
	} else {
		_, port = splitLastColon(n.raw)
	}
	if port == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// Identifier returns the raw token without its leading "_".
// Only meaningful when IsIdentifier reports true.
func (n *Node) Identifier() string {
	return strings.TrimPrefix(n.raw, "_")
}

// String implements fmt.Stringer.
func (n *Node) String() string { return n.raw }

// splitLastColon splits s at its last ':'; port is empty when there is none.
func splitLastColon(s string) (addr, port string) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// splitBracketed splits "[addr]:port". The port separator is only looked for
// after the closing bracket so the colons inside the literal are skipped.
func (n *Node) splitBracketed() (addr, port string) {
	open := strings.IndexByte(n.raw, '[')
	closing := strings.LastIndexByte(n.raw, ']')
	if closing < open {
		return n.raw[open+1:], ""
	}
	addr = n.raw[open+1 : closing]
	if rest := n.raw[closing+1:]; strings.HasPrefix(rest, ":") {
		port = rest[1:]
	}
	return addr, port
}

type nodeJSON struct {
	Kind       string `json:"kind"`
	Raw        string `json:"raw"`
	Address    string `json:"address,omitempty"`
	Port       *int   `json:"port,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// MarshalJSON encodes the node together with its derived parts.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{Kind: n.kind.String(), Raw: n.raw}
	if n.IsIP() {
		out.Address, _ = n.IP()
	}
	if port, ok := n.Port(); ok {
		out.Port = &port
	}
	if n.IsIdentifier() {
		out.Identifier = n.Identifier()
	}
	return json.Marshal(out)
}
