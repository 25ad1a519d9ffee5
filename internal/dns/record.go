package dns

import (
	"fmt"
	"net"
	"strings"

	mdns "github.com/miekg/dns"
)

const txtChunk = 255

// ValueTypes are the record types whose data the lister reconstructs.
// TXT is excluded: at a managed name it carries the ownership tag.
var ValueTypes = map[uint16]bool{
	mdns.TypeA:     true,
	mdns.TypeCNAME: true,
	mdns.TypePTR:   true,
}

// Identity identifies a record for reconciliation. TTL, zone and source are
// metadata only.
type Identity struct {
	Name  string
	Type  string
	Value string
}

// Key returns the reconciliation identity of the record.
func (r Record) Key() Identity {
	return Identity{
		Name:  strings.ToLower(Fqdn(r.Name, r.Zone)),
		Type:  strings.ToUpper(r.Type),
		Value: r.Value,
	}
}

// Same reports whether r and o denote the same logical record.
func (r Record) Same(o Record) bool {
	return r.Key() == o.Key()
}

// Fqdn returns the absolute owner name of the record.
func (r Record) Fqdn() string {
	return Fqdn(r.Name, r.Zone)
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s,%s ttl: %d zone: %s source: %s", r.Name, r.Type, r.Value, r.TTL, r.Zone, r.Source)
}

// Validate checks that the record can be sent to the nameserver.
func (r Record) Validate() error {
	if r.Zone == "" {
		return fmt.Errorf("record %q: zone must not be empty", r.Name)
	}
	if r.Name == "" {
		return fmt.Errorf("record in zone %q: name must not be empty", r.Zone)
	}
	if r.TTL == 0 {
		return fmt.Errorf("record %q: TTL must be positive", r.Name)
	}
	if !r.Source.Valid() {
		return fmt.Errorf("record %q: unrecognized source %s", r.Name, r.Source)
	}
	if _, err := r.ToRR(); err != nil {
		return err
	}
	return nil
}

// ToRR converts the record into a miekg/dns RR.
func (r Record) ToRR() (mdns.RR, error) {
	rrtype, ok := mdns.StringToType[strings.ToUpper(r.Type)]
	if !ok {
		return nil, fmt.Errorf("record %q: unsupported record type %q", r.Name, r.Type)
	}
	hdr := mdns.RR_Header{
		Name:   r.Fqdn(),
		Rrtype: rrtype,
		Class:  mdns.ClassINET,
		Ttl:    r.TTL,
	}

	switch rrtype {
	case mdns.TypeA:
		ip := net.ParseIP(r.Value)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("record %q: value %q is not a valid IPv4 address", r.Name, r.Value)
		}
		return &mdns.A{Hdr: hdr, A: ip.To4()}, nil
	case mdns.TypeTXT:
		if r.Value == "" {
			return nil, fmt.Errorf("record %q: TXT value must not be empty", r.Name)
		}
		return &mdns.TXT{Hdr: hdr, Txt: splitTXT(r.Value)}, nil
	}

	// Everything else goes through the zone file parser so relative targets
	// resolve against the record's zone.
	line := fmt.Sprintf("%s %d IN %s %s", hdr.Name, hdr.Ttl, mdns.TypeToString[rrtype], r.Value)
	zp := mdns.NewZoneParser(strings.NewReader(line), mdns.Fqdn(r.Zone), "")
	rr, ok := zp.Next()
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("record %q: parsing %s value %q: %w", r.Name, r.Type, r.Value, err)
	}
	if !ok || rr == nil {
		return nil, fmt.Errorf("record %q: empty %s value", r.Name, r.Type)
	}
	return rr, nil
}

// FromRR rebuilds a Record from transferred zone data. The owner name is made
// relative to zone.
func FromRR(zone string, rr mdns.RR, source Source) Record {
	hdr := rr.Header()
	var value string
	switch v := rr.(type) {
	case *mdns.A:
		value = v.A.String()
	case *mdns.CNAME:
		value = v.Target
	case *mdns.PTR:
		value = v.Ptr
	case *mdns.TXT:
		value = strings.Join(v.Txt, "")
	default:
		value = strings.TrimSpace(strings.TrimPrefix(rr.String(), hdr.String()))
	}
	return Record{
		Zone:   zone,
		Name:   RelativeName(hdr.Name, zone),
		Type:   mdns.TypeToString[hdr.Rrtype],
		Value:  value,
		TTL:    hdr.Ttl,
		Source: source,
	}
}

// OwnershipTag is the TXT value marking a record as created by clientName
// from source.
func OwnershipTag(clientName string, source Source) string {
	return clientName + "," + source.String()
}

// ParseOwnershipTag returns the source encoded in value when value is one of
// clientName's tags.
func ParseOwnershipTag(clientName, value string) (Source, bool) {
	client, src, ok := strings.Cut(value, ",")
	if !ok || client != clientName {
		return 0, false
	}
	return ParseSource(src)
}

// OwnershipRecord builds the TXT companion of record.
func OwnershipRecord(record Record, clientName string) Record {
	return Record{
		Zone:   record.Zone,
		Name:   record.Name,
		Type:   "TXT",
		Value:  OwnershipTag(clientName, record.Source),
		TTL:    record.TTL,
		Source: record.Source,
	}
}

// ReverseRecord derives the PTR record for an A record inside reverseZone.
// It reports false when no reverse zone is configured, when record is not an
// A record, or when the address does not belong to reverseZone.
func ReverseRecord(record Record, reverseZone string) (Record, bool) {
	if reverseZone == "" || !strings.EqualFold(record.Type, "A") {
		return Record{}, false
	}
	ip := net.ParseIP(record.Value)
	if ip == nil || ip.To4() == nil {
		return Record{}, false
	}
	arpa, err := mdns.ReverseAddr(ip.String())
	if err != nil {
		return Record{}, false
	}

	suffix := "." + strings.ToLower(mdns.Fqdn(reverseZone))
	name := strings.TrimSuffix(arpa, suffix)
	if name == arpa {
		return Record{}, false
	}

	return Record{
		Zone:   reverseZone,
		Name:   name,
		Type:   "PTR",
		Value:  record.Fqdn(),
		TTL:    record.TTL,
		Source: record.Source,
	}, true
}

// splitTXT breaks a TXT value into 255-byte chunks.
func splitTXT(s string) []string {
	if len(s) <= txtChunk {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := min(txtChunk, len(s))
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
