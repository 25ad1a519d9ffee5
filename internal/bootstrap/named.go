package bootstrap

import (
	"fmt"
	"strings"

	mdns "github.com/miekg/dns"
)

// Zone file timers, in seconds.
const (
	DefaultZoneTTL = 86400
	InitialSerial  = 3
	SOARefresh     = 604800
	SOARetry       = 86400
	SOAExpire      = 2419200
	SOANegativeTTL = 604800
)

// ACL is a named address match list.
type ACL struct {
	Name    string
	Entries []string
}

// Options is the global named configuration.
type Options struct {
	Directory  string
	Trusted    ACL
	Forwarders []string
	ListenOn   []string
	ListenOnV6 []string
	Includes   []string
}

// String renders the options file.
func (o Options) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "acl \"%s\" {\n", o.Trusted.Name)
	for _, e := range o.Trusted.Entries {
		fmt.Fprintf(&b, "  %s;\n", e)
	}
	fmt.Fprintf(&b, "};\n\n")

	fmt.Fprintf(&b, "options {\n")
	fmt.Fprintf(&b, "    directory \"%s\";\n\n", o.Directory)
	fmt.Fprintf(&b, "    recursion yes;\n")
	fmt.Fprintf(&b, "    allow-query { %s; };\n\n", o.Trusted.Name)
	fmt.Fprintf(&b, "    forwarders {\n")
	for _, f := range o.Forwarders {
		fmt.Fprintf(&b, "        %s;\n", f)
	}
	fmt.Fprintf(&b, "    };\n\n")
	fmt.Fprintf(&b, "    dnssec-validation auto;\n\n")
	fmt.Fprintf(&b, "    listen-on { %s };\n", matchList(o.ListenOn))
	fmt.Fprintf(&b, "    listen-on-v6 { %s };\n", matchList(o.ListenOnV6))
	fmt.Fprintf(&b, "};\n")

	for _, inc := range o.Includes {
		fmt.Fprintf(&b, "include \"%s\";\n", inc)
	}
	return b.String()
}

// ZoneStanza declares one primary zone and who may update it.
type ZoneStanza struct {
	Name string
	File string
	// Grantee is the identity allowed to update names in the zone:
	// a key name, or "*" for any signed request.
	Grantee string
	// TransferKey, when set, restricts zone transfers to that key.
	TransferKey string
}

// String renders the zone statement.
func (z ZoneStanza) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "zone \"%s\" {\n", strings.TrimSuffix(z.Name, "."))
	fmt.Fprintf(&b, "    type master;\n")
	fmt.Fprintf(&b, "    file \"%s\";\n\n", z.File)
	if z.TransferKey != "" {
		fmt.Fprintf(&b, "    allow-transfer { key \"%s\"; };\n\n", z.TransferKey)
	}
	fmt.Fprintf(&b, "    update-policy {\n")
	fmt.Fprintf(&b, "        grant %s zonesub ANY;\n", z.Grantee)
	fmt.Fprintf(&b, "    };\n")
	fmt.Fprintf(&b, "};\n")
	return b.String()
}

// ZoneFile is the skeleton loaded by the nameserver before any update.
type ZoneFile struct {
	Origin  string
	TTL     uint32
	Records []mdns.RR
}

// String renders the zone file in master file format.
func (z ZoneFile) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ORIGIN %s\n", mdns.Fqdn(z.Origin))
	fmt.Fprintf(&b, "$TTL %d\n", z.TTL)
	for _, rr := range z.Records {
		fmt.Fprintln(&b, rr.String())
	}
	return b.String()
}

// renderLocal joins zone stanzas into named.conf.local.
func renderLocal(zones []ZoneStanza) string {
	parts := make([]string, 0, len(zones))
	for _, z := range zones {
		parts = append(parts, z.String())
	}
	return strings.Join(parts, "\n")
}

func matchList(entries []string) string {
	if len(entries) == 0 {
		return "none;"
	}
	return strings.Join(entries, "; ") + ";"
}
