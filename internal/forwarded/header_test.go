package forwarded

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleFor(t *testing.T) {
	h, err := Parse("for=192.0.2.43")
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())

	rec, ok := h.First()
	require.True(t, ok)
	require.NotNil(t, rec.For())
	assert.Equal(t, KindIPv4, rec.For().Kind())
	ip, err := rec.For().IP()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.43", ip)

	assert.Nil(t, rec.By())
	_, ok = rec.Host()
	assert.False(t, ok)
	_, ok = rec.Proto()
	assert.False(t, ok)
}

func TestParse_MultipleHops(t *testing.T) {
	h, err := Parse(`for=192.0.2.43,for="[2001:db8:cafe::17]",for=unknown`)
	require.NoError(t, err)
	require.Equal(t, 3, h.Len())

	ip, err := h.At(0).For().IP()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.43", ip)

	ip, err = h.At(1).For().IP()
	require.NoError(t, err)
	assert.Equal(t, "2001:db8:cafe::17", ip)

	assert.Equal(t, KindUnknown, h.At(2).For().Kind())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Same(t, h.At(2), last)
}

func TestParse_AllParameters(t *testing.T) {
	h, err := Parse("for=192.0.2.43:55423;proto=http;host=test.dev;by=unknown")
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())
	rec := h.At(0)

	ip, err := rec.For().IP()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.43", ip)
	port, ok := rec.For().Port()
	assert.True(t, ok)
	assert.Equal(t, 55423, port)

	assert.Equal(t, KindUnknown, rec.By().Kind())

	host, ok := rec.Host()
	assert.True(t, ok)
	assert.Equal(t, "test.dev", host)

	proto, ok := rec.Proto()
	assert.True(t, ok)
	assert.Equal(t, "http", proto)
}

func TestParse_Empty(t *testing.T) {
	h, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())

	_, ok := h.First()
	assert.False(t, ok)
	_, ok = h.Last()
	assert.False(t, ok)
}

func TestParse_EmptyValuesAreAbsent(t *testing.T) {
	h, err := Parse(`for=;by="";host= ;proto=`)
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())

	rec := h.At(0)
	assert.Nil(t, rec.For())
	assert.Nil(t, rec.By())
	_, ok := rec.Host()
	assert.False(t, ok)
	_, ok = rec.Proto()
	assert.False(t, ok)
	assert.True(t, rec.Empty())
}

func TestParse_CaseInsensitiveParameters(t *testing.T) {
	h, err := Parse("FOR=192.0.2.1;By=_proxy;Host=example.com;PROTO=https")
	require.NoError(t, err)
	rec := h.At(0)

	require.NotNil(t, rec.For())
	require.NotNil(t, rec.By())
	assert.Equal(t, "proxy", rec.By().Identifier())
	host, _ := rec.Host()
	assert.Equal(t, "example.com", host)
	proto, _ := rec.Proto()
	assert.Equal(t, "https", proto)
}

func TestParse_Extensions(t *testing.T) {
	h, err := Parse("for=192.0.2.1;secret=abc;Via=edge-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"secret": "abc", "via": "edge-1"}, h.At(0).Extensions())
}

func TestParse_OnlySeparators(t *testing.T) {
	h, err := Parse(",,")
	require.NoError(t, err)
	require.Equal(t, 2, h.Len())
	assert.True(t, h.At(0).Empty())
	assert.True(t, h.At(1).Empty())
}

func TestFromPairSequence(t *testing.T) {
	h, err := FromPairSequence([]Pairs{
		{"for": "_a"},
		{"for": "_b", "by": "[::1]:443"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, h.Len())
	assert.Equal(t, "a", h.At(0).For().Identifier())
	assert.Equal(t, "b", h.At(1).For().Identifier())
	assert.True(t, h.At(1).By().IsV6())

	h, err = FromPairSequence(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())
}

func TestNewHeader_Append(t *testing.T) {
	client, err := NewNode("192.0.2.43")
	require.NoError(t, err)
	proxy, err := NewNode("_edge")
	require.NoError(t, err)

	h := NewHeader(NewRecord(nil, client, "", "http"))
	appended := h.Append(NewRecord(proxy, client, "example.com", "https"))

	assert.Equal(t, 1, h.Len(), "append must not modify the receiver")
	require.Equal(t, 2, appended.Len())
	assert.Equal(t, "for=192.0.2.43;by=_edge;host=example.com;proto=https", appended.At(1).String())
}

func TestHeader_String(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain tokens",
			raw:  "for=192.0.2.43;proto=http",
			want: "for=192.0.2.43;proto=http",
		},
		{
			name: "ipv6 is quoted",
			raw:  `for="[2001:db8:cafe::17]:80";proto=https, for=unknown`,
			want: `for="[2001:db8:cafe::17]:80";proto=https, for=unknown`,
		},
		{
			name: "canonical parameter order",
			raw:  "proto=https;by=_edge;host=example.com;for=_client",
			want: "for=_client;by=_edge;host=example.com;proto=https",
		},
		{
			name: "escaping",
			raw:  `for=_a;note="say \"hi\" \\o/"`,
			want: `for=_a;note="say \"hi\" \\o/"`,
		},
		{
			name: "empty hop",
			raw:  "for=_a,,for=_b",
			want: "for=_a, , for=_b",
		},
		{
			name: "leading empty hop",
			raw:  ",for=_a",
			want: ", for=_a",
		},
		{
			name: "trailing empty hop",
			raw:  "for=_a,,",
			want: "for=_a, ,",
		},
		{
			name: "only empty hops",
			raw:  ",,",
			want: ", ,",
		},
		{
			name: "single empty hop",
			raw:  ",",
			want: ",",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.String())

			again, err := Parse(h.String())
			require.NoError(t, err)
			assert.Equal(t, h.Len(), again.Len(), "hop count survives the round trip")
			assert.Equal(t, h.String(), again.String())
		})
	}
}

func TestParse_CaseVariantDuplicates(t *testing.T) {
	const raw = "for=192.0.2.1;FOR=198.51.100.7;Via=a;via=b"

	for i := 0; i < 100; i++ {
		h, err := Parse(raw)
		require.NoError(t, err)
		require.Equal(t, 1, h.Len())

		rec := h.At(0)
		require.NotNil(t, rec.For())
		assert.Equal(t, "192.0.2.1", rec.For().Raw(), "lower-case spelling wins")
		assert.Equal(t, map[string]string{"via": "b"}, rec.Extensions())
	}
}

func TestRecordFromPairs_CaseVariantSkipsEmpty(t *testing.T) {
	rec, err := RecordFromPairs(Pairs{"Host": "example.com", "host": ""})
	require.NoError(t, err)

	host, ok := rec.Host()
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestHeader_MarshalJSON(t *testing.T) {
	h, err := Parse(`for="[::1]:8080";proto=https;by=_edge`)
	require.NoError(t, err)

	got, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"for": {"kind": "ipv6", "raw": "[::1]:8080", "address": "::1", "port": 8080},
		"by": {"kind": "identifier", "raw": "_edge", "identifier": "edge"},
		"proto": "https"
	}]`, string(got))

	got, err = json.Marshal(NewHeader())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}
