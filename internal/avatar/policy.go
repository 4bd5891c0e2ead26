// Package avatar decides which image a patient card shows and keeps
// locally chosen avatar files available for preview.
package avatar

import "strings"

// DefaultPlaceholderURL is served from the embedded assets.
const DefaultPlaceholderURL = "/api/v1/assets/avatar-placeholder.svg"

// DefaultBrokenHosts lists upstream hosts whose demo avatars are known not to load.
var DefaultBrokenHosts = []string{
	"cloudflare",
	"63bedcf7f5cfc0949b634fc8.mockapi.io",
	"as.com",
}

// Policy substitutes a placeholder for avatars that cannot be shown.
// It never changes the stored value.
type Policy struct {
	placeholder string
	brokenHosts []string
}

func NewPolicy(placeholder string, brokenHosts []string) *Policy {
	if placeholder == "" {
		placeholder = DefaultPlaceholderURL
	}
	hosts := make([]string, 0, len(brokenHosts))
	for _, h := range brokenHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Policy{placeholder: placeholder, brokenHosts: hosts}
}

// Placeholder returns the fallback image URL.
func (p *Policy) Placeholder() string {
	return p.placeholder
}

// Resolve returns the image to display for value. failed is set by card views
// once the client reported that the image did not load.
func (p *Policy) Resolve(value string, failed bool) string {
	if failed || value == "" {
		return p.placeholder
	}
	for _, h := range p.brokenHosts {
		if strings.Contains(value, h) {
			return p.placeholder
		}
	}
	return value
}
