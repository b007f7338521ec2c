package clientip

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, trustProxy bool) *Resolver {
	t.Helper()
	resolver, err := NewResolver(trustProxy, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return resolver
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		forwarded  []string
		want       string
	}{
		{
			name:       "no header",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "proxy not trusted",
			trustProxy: false,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=192.0.2.43"},
			want:       "10.0.0.1",
		},
		{
			name:       "ipv4 with port",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=192.0.2.43:55423;proto=https"},
			want:       "192.0.2.43",
		},
		{
			name:       "ipv6",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{`for="[2001:db8:cafe::17]:4711"`},
			want:       "2001:db8:cafe::17",
		},
		{
			name:       "first hop wins",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=192.0.2.43, for=198.51.100.17"},
			want:       "192.0.2.43",
		},
		{
			name:       "multiple field lines",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=192.0.2.43", "for=198.51.100.17"},
			want:       "192.0.2.43",
		},
		{
			name:       "unknown falls back",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=unknown"},
			want:       "10.0.0.1",
		},
		{
			name:       "identifier falls back",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=_hidden"},
			want:       "10.0.0.1",
		},
		{
			name:       "lexically ipv4 but invalid",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			forwarded:  []string{"for=not-an-ip"},
			want:       "10.0.0.1",
		},
		{
			name:       "ipv6 remote address",
			trustProxy: true,
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "remote address without port",
			trustProxy: true,
			remoteAddr: "10.0.0.1",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(t, tt.trustProxy)
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.forwarded {
				req.Header.Add(HeaderName, v)
			}
			assert.Equal(t, tt.want, resolver.GetClientIP(req))
		})
	}
}

func TestGetClientKey(t *testing.T) {
	resolver := newTestResolver(t, true)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set(HeaderName, "for=_SEVKISEK;by=_proxy")
	assert.Equal(t, "_SEVKISEK", resolver.GetClientKey(req))

	req.Header.Set(HeaderName, "for=192.0.2.43")
	assert.Equal(t, "192.0.2.43", resolver.GetClientKey(req))

	req.Header.Set(HeaderName, "for=unknown")
	assert.Equal(t, "10.0.0.1", resolver.GetClientKey(req))
}

func TestForwarded(t *testing.T) {
	resolver := newTestResolver(t, true)

	req := httptest.NewRequest("GET", "/", nil)
	header, err := resolver.Forwarded(req)
	require.NoError(t, err)
	assert.Nil(t, header, "absent header")

	req.Header.Add(HeaderName, "for=192.0.2.43;proto=http")
	req.Header.Add(HeaderName, `for="[::1]";by=_edge`)
	header, err = resolver.Forwarded(req)
	require.NoError(t, err)
	require.NotNil(t, header)
	assert.Equal(t, 2, header.Len())
	assert.True(t, header.At(1).By().IsIdentifier())
}

func TestParse_Cache(t *testing.T) {
	resolver := newTestResolver(t, true)

	first, err := resolver.Parse("for=192.0.2.43")
	require.NoError(t, err)
	second, err := resolver.Parse("for=192.0.2.43")
	require.NoError(t, err)

	assert.Same(t, first, second, "second parse should be served from cache")
	assert.Equal(t, 1, resolver.CacheLen())

	for i := 0; i < 32; i++ {
		_, err := resolver.Parse("for=_client" + string(rune('a'+i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 16, resolver.CacheLen(), "cache is bounded")
}

func TestNewResolver_DefaultCacheSize(t *testing.T) {
	resolver, err := NewResolver(false, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.False(t, resolver.TrustProxy())
}
