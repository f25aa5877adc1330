package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		want   string
	}{
		{"ipv4 with port", "203.0.113.7:51412", "203.0.113.7"},
		{"ipv4 without port", "203.0.113.7", "203.0.113.7"},
		{"ipv6 with port", "[::1]:51412", "::1"},
		{"ipv6 without port", "[::1]", "::1"},
		{"ipv6 with zone", "[fe80::1%eth0]:8080", "fe80::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			assert.Equal(t, tc.want, clientIP(r))
		})
	}
}

func TestResolveTokenPrefersCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", resolveToken(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", resolveToken(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", resolveToken(r))
}
