// Package clientip resolves the originating client of an HTTP request from
// the RFC 7239 Forwarded header, falling back to the connection address.
package clientip

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rampantspark/goforwarded/internal/forwarded"
)

// HeaderName is the canonical name of the RFC 7239 request header.
const HeaderName = "Forwarded"

// DefaultCacheSize is used when NewResolver is given a non-positive size.
const DefaultCacheSize = 1024

// parseResult is what the cache stores for a raw header value. Failures are
// cached too; parsing is deterministic so retrying would fail the same way.
type parseResult struct {
	header *forwarded.Header
	err    error
}

// Resolver handles client identification for incoming requests.
type Resolver struct {
	trustProxy bool
	cache      *lru.Cache[string, parseResult]
	logger     *slog.Logger
}

// NewResolver creates a new resolver.
//
// Parameters:
//   - trustProxy: whether to trust the Forwarded header at all
//   - cacheSize: number of distinct raw header values to keep parsed
//   - logger: structured logger instance
//
// Returns a new Resolver instance or an error if the cache cannot be created.
func NewResolver(trustProxy bool, cacheSize int, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, parseResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &Resolver{
		trustProxy: trustProxy,
		cache:      cache,
		logger:     logger,
	}, nil
}

// TrustProxy reports whether the Forwarded header is used for client resolution.
func (resolver *Resolver) TrustProxy() bool {
	return resolver.trustProxy
}

// Raw returns the Forwarded header of r with all field lines joined by ", ",
// which is equivalent to a single line per RFC 7230 section 3.2.2.
func Raw(r *http.Request) string {
	return strings.Join(r.Header.Values(HeaderName), ", ")
}

// Forwarded parses the Forwarded header of r.
//
// Returns nil and no error when the header is absent. A malformed header
// returns an error and must be treated as absent by the caller.
func (resolver *Resolver) Forwarded(r *http.Request) (*forwarded.Header, error) {
	raw := Raw(r)
	if raw == "" {
		return nil, nil
	}
	return resolver.Parse(raw)
}

// Parse parses a raw header value through the cache.
func (resolver *Resolver) Parse(raw string) (*forwarded.Header, error) {
	if res, ok := resolver.cache.Get(raw); ok {
		return res.header, res.err
	}
	header, err := forwarded.Parse(raw)
	resolver.cache.Add(raw, parseResult{header: header, err: err})
	return header, err
}

// CacheLen returns the number of cached header values.
func (resolver *Resolver) CacheLen() int {
	return resolver.cache.Len()
}

// GetClientIP extracts the client IP address from the request.
//
// If trustProxy is true, the for node of the first hop is used when it is an
// IPv4 or IPv6 literal that parses as an address. Identifiers, unknown nodes
// and malformed headers are ignored. Falls back to RemoteAddr without port.
//
// Parameters:
//   - r: the HTTP request
//
// Returns the client IP address as a string.
func (resolver *Resolver) GetClientIP(r *http.Request) string {
	if node := resolver.originNode(r); node != nil && node.IsIP() {
		if addr, err := node.Addr(); err == nil {
			return addr.String()
		}
	}
	return RemoteIP(r)
}

// GetClientKey returns a stable key for the client, suitable for rate limiting.
//
// It behaves like GetClientIP but also accepts an obfuscated identifier
// (RFC 7239 section 6.3) as the key, since a proxy hiding the address still
// identifies the same client with the same identifier.
func (resolver *Resolver) GetClientKey(r *http.Request) string {
	if node := resolver.originNode(r); node != nil && node.IsIdentifier() {
		return node.Raw()
	}
	return resolver.GetClientIP(r)
}

// originNode returns the for node of the first hop, or nil.
func (resolver *Resolver) originNode(r *http.Request) *forwarded.Node {
	if !resolver.trustProxy {
		return nil
	}
	header, err := resolver.Forwarded(r)
	if err != nil {
		resolver.logger.Debug("Ignoring malformed Forwarded header", "error", err, "remote_addr", r.RemoteAddr)
		return nil
	}
	if header == nil {
		return nil
	}
	first, ok := header.First()
	if !ok {
		return nil
	}
	return first.For()
}

// RemoteIP returns the connection address of r without port.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
