// Package forwarded parses the Forwarded HTTP header defined in RFC 7239.
//
// A header value such as
//
//	for=192.0.2.43, for="[2001:db8:cafe::17]";proto=https, for=unknown
//
// is scanned into one Pairs per hop, each of which becomes a Record whose by
// and for values are classified as IPv4, IPv6, obfuscated identifier or
// unknown. Hops keep the order in which they appear in the header, which is
// the order the request travelled through the proxies.
package forwarded

import (
	"encoding/json"
	"fmt"
)

// Header is a parsed Forwarded header.
type Header struct {
	records []*Record
}

// NewHeader wraps already built records.
func NewHeader(records ...*Record) *Header {
	return &Header{records: records}
}

// Parse parses a raw Forwarded header value. It stops at the first hop with
// an invalid node and returns no partial result.
func Parse(raw string) (*Header, error) {
	return FromPairSequence(ParsePairs(raw))
}

// FromPairSequence builds a header from the pairs produced by a Parser.
// Errors are wrapped with the position of the offending hop.
func FromPairSequence(seq []Pairs) (*Header, error) {
	records := make([]*Record, 0, len(seq))
	for i, pairs := range seq {
		rec, err := RecordFromPairs(pairs)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return &Header{records: records}, nil
}

// Len returns the number of hops.
func (h *Header) Len() int { return len(h.records) }

// At returns the i-th hop. It panics if i is out of range.
func (h *Header) At(i int) *Record { return h.records[i] }

// First returns the hop added by the proxy closest to the client.
func (h *Header) First() (*Record, bool) {
	if len(h.records) == 0 {
		return nil, false
	}
	return h.records[0], true
}

// Last returns the hop added by the proxy closest to this server.
func (h *Header) Last() (*Record, bool) {
	if len(h.records) == 0 {
		return nil, false
	}
	return h.records[len(h.records)-1], true
}

// Records returns the hops in header order. The slice must not be modified.
func (h *Header) Records() []*Record { return h.records }

// Append returns a new header with rec added after the existing hops.
func (h *Header) Append(rec *Record) *Header {
	records := make([]*Record, 0, len(h.records)+1)
	records = append(records, h.records...)
	return &Header{records: append(records, rec)}
}

// MarshalJSON encodes the header as an array of hops.
func (h *Header) MarshalJSON() ([]byte, error) {
	if h.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.records)
}
