// Package uri parses and formats "protocol:body" note references.
package uri

import (
	"regexp"
	"slices"
)

// Protocols are letters, digits, "_" and "-" in any script.
var uriRe = regexp.MustCompile(`^([\p{L}\p{N}_-]*?):(.*)$`)

// URI is a protocol/body pair. The zero value is an empty local reference.
type URI struct {
	Protocol string `json:"protocol"`
	Body     string `json:"body"`
}

// Parse splits s at its first colon when the prefix is a valid protocol.
// Strings without such a prefix become a body with an empty protocol.
func Parse(s string) URI {
	m := uriRe.FindStringSubmatch(s)
	if m == nil {
		return URI{Body: s}
	}
	return URI{Protocol: m[1], Body: m[2]}
}

// New builds a URI from its two parts without parsing.
func New(protocol, body string) URI {
	return URI{Protocol: protocol, Body: body}
}

// String formats the URI back to its textual form.
func (u URI) String() string {
	if u.Protocol == "" {
		return u.Body
	}
	return u.Protocol + ":" + u.Body
}

// WithBody returns a copy of u with the body replaced.
func (u URI) WithBody(body string) URI {
	u.Body = body
	return u
}

// IsLocal reports whether the protocol is one of the given local protocols.
func (u URI) IsLocal(protocols []string) bool {
	return slices.Contains(protocols, u.Protocol)
}
