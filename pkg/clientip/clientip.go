// Package clientip extracts the originating client IP from HTTP requests
// behind the usual proxy layers. The rate limiter keys anonymous traffic
// by this address, so header order matters: trusted proxy headers first,
// then the socket address.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders in trust order. CDN headers carry a single verified
// address, X-Forwarded-For may carry a chain.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Real-IP"}

// Get returns the client's IP address for the request, falling back to
// RemoteAddr when no proxy header carries a valid address.
func Get(r *http.Request) string {
	for _, h := range proxyHeaders {
		if ip := parse(r.Header.Get(h)); ip != "" {
			return ip
		}
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for part := range strings.SplitSeq(forwarded, ",") {
			if ip := parse(strings.TrimSpace(part)); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parse(r.RemoteAddr)
	}
	return parse(host)
}

// parse validates and normalizes an IP address string. Returns "" when
// the input is not a valid address.
func parse(s string) string {
	if s == "" {
		return ""
	}
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
