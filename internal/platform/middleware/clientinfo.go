package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"fleetdocs/pkg/requestcontext"
)

// ClientInfo extracts the caller's IP and a normalized user-agent string for
// the audit trail. Runs before the handlers so services can read both from
// the context without touching net/http.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := requestcontext.ClientInfo{
			IPAddress: clientIP(r),
			UserAgent: normalizeUserAgent(r.UserAgent()),
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithClientInfo(r.Context(), info)))
	})
}

// clientIP prefers the first X-Forwarded-For hop set by the edge proxy,
// falling back to the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// normalizeUserAgent condenses the raw header to "browser/version (os)" so
// audit rows stay readable. Unparseable agents are stored raw.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	out := name
	if version != "" {
		out += "/" + version
	}
	if os := ua.OS(); os != "" {
		out += " (" + os + ")"
	}
	return out
}
