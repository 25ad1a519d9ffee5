package dns

import (
	"strings"

	mdns "github.com/miekg/dns"
)

// Fqdn returns the absolute form of name inside zone.
// e.g. ("app", "example.com") → "app.example.com."
// e.g. ("@", "example.com") → "example.com."
// e.g. ("app.other.org.", "example.com") → "app.other.org."
func Fqdn(name, zone string) string {
	if mdns.IsFqdn(name) {
		return name
	}
	zone = mdns.Fqdn(zone)
	if name == "" || name == "@" {
		return zone
	}
	return name + "." + zone
}

// RelativeName strips zone from an absolute owner name.
// e.g. ("app.example.com.", "example.com") → "app"
// e.g. ("example.com.", "example.com") → "@"
// Names outside the zone are returned unchanged.
func RelativeName(fqdn, zone string) string {
	zone = mdns.Fqdn(zone)
	if strings.EqualFold(mdns.Fqdn(fqdn), zone) {
		return "@"
	}
	suffix := "." + zone
	if len(fqdn) > len(suffix) && strings.EqualFold(fqdn[len(fqdn)-len(suffix):], suffix) {
		return fqdn[:len(fqdn)-len(suffix)]
	}
	return fqdn
}
