package forwarded

import "errors"

var (
	// ErrEmptyNodeName is returned when a by or for node is built from an empty string.
	ErrEmptyNodeName = errors.New("forwarded: empty node name")

	// ErrNotAnIPAddress is returned by Node.IP for identifier and unknown nodes.
	ErrNotAnIPAddress = errors.New("forwarded: node is not an ip address")
)
