package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"bothub/pkg/requestcontext"
)

// ClientMetadata records the caller's IP, raw User-Agent and a short platform
// label in the request context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua, Platform(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Platform summarizes a User-Agent as "name/version (os)". For clients that
// are not browsers, such as trading agents, the name and version come from the
// leading product token when the parser leaves them blank.
func Platform(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	product, productVersion := productToken(ua.UA())
	if name == "" {
		name, version = product, productVersion
	} else if version == "" && name == product {
		version = productVersion
	}

	label := name
	if version != "" {
		label += "/" + version
	}
	if os := ua.OS(); os != "" {
		label += " (" + os + ")"
	}
	if label == "" {
		return userAgent
	}
	return label
}

// productToken splits the first "name/version" token of a User-Agent.
func productToken(userAgent string) (string, string) {
	token, _, _ := strings.Cut(userAgent, " ")
	if strings.HasPrefix(token, "(") {
		return "", ""
	}
	name, version, _ := strings.Cut(token, "/")
	return name, version
}

// ClientIPFromRequest extracts the real client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For lists client, proxy1, proxy2, ...; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if addr := r.RemoteAddr; addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}

	return "unknown"
}
