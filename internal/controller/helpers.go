package controller

import (
	"fmt"
	"strings"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

// FormatManaged returns a human-readable listing of the managed records of zone.
func FormatManaged(zone string, managed *dns.ManagedRecords) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Zone %s\n", zone)
	if managed == nil || managed.Len() == 0 {
		fmt.Fprintf(&b, "  (no managed records)\n")
		return b.String()
	}

	for _, name := range managed.Names() {
		records, _ := managed.Get(name)
		fmt.Fprintf(&b, "  %s:\n", name)
		if len(records) == 0 {
			fmt.Fprintf(&b, "    (tagged, no value records)\n")
		}
		for _, r := range records {
			fmt.Fprintf(&b, "    - %s %s ttl=%d source=%s\n", r.Type, r.Value, r.TTL, r.Source)
		}
	}
	return b.String()
}

// FormatRecords renders records compactly for log lines.
func FormatRecords(records []dns.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, fmt.Sprintf("%s %s %s", r.Fqdn(), r.Type, r.Value))
	}
	return out
}
