package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// VirtualURL is a URL whose authority names a logical service.
type VirtualURL struct {
	Scheme    string
	Authority string
	Service   string
	// PathAndQuery is everything after the authority up to (excluding) any
	// fragment, kept byte-for-byte.
	PathAndQuery string
}

// ParseVirtualURL splits raw into scheme, authority and the untouched remainder.
func ParseVirtualURL(raw string) (VirtualURL, error) {
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return VirtualURL{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, raw)
	}
	scheme := raw[:idx]
	rest := raw[idx+len("://"):]

	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority := rest[:end]
	tail := rest[end:]
	if i := strings.IndexByte(tail, '#'); i >= 0 {
		tail = tail[:i]
	}

	u, err := url.Parse(scheme + "://" + authority)
	if err != nil {
		return VirtualURL{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	service := u.Hostname()
	if service == "" {
		return VirtualURL{}, fmt.Errorf("%w: %q has no service name", ErrInvalidURL, raw)
	}

	return VirtualURL{
		Scheme:       scheme,
		Authority:    authority,
		Service:      service,
		PathAndQuery: tail,
	}, nil
}

// Rewrite swaps the logical authority for hostPort.
func (v VirtualURL) Rewrite(hostPort string) string {
	return v.Scheme + "://" + hostPort + v.PathAndQuery
}
