package gateway

import (
	"net"
	"net/http"
	"strings"
)

// clientIdentity derives the session key for a request from its network
// origin. Behind a proxy the first X-Forwarded-For entry is the client;
// otherwise the remote address host is used.
func clientIdentity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
