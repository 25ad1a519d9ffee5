package dns

import (
	"context"
	"fmt"
)

// DefaultTTL is applied to records constructed without an explicit TTL.
const DefaultTTL uint32 = 60

// Source is the provenance of a managed record.
type Source uint8

const (
	// SourceDocker marks records derived from running containers.
	SourceDocker Source = iota + 1
	// SourceStatic marks records declared by the operator.
	SourceStatic
)

// Sources lists every recognized provenance tag.
var Sources = []Source{SourceDocker, SourceStatic}

// String returns the wire form of the source, as stored in ownership tags.
func (s Source) String() string {
	switch s {
	case SourceDocker:
		return "docker"
	case SourceStatic:
		return "static"
	default:
		return fmt.Sprintf("Source(%d)", s)
	}
}

// Valid reports whether s is one of the recognized sources.
func (s Source) Valid() bool {
	return s == SourceDocker || s == SourceStatic
}

// ParseSource converts the wire form back into a Source.
func ParseSource(v string) (Source, bool) {
	for _, s := range Sources {
		if s.String() == v {
			return s, true
		}
	}
	return 0, false
}

// Record represents a DNS record to be managed.
type Record struct {
	Zone   string // owning zone, e.g. "example.com"
	Name   string // owner name, relative to Zone or absolute with a trailing dot
	Type   string // "A", "PTR", "CNAME", "TXT", ...
	Value  string // record data in presentation format
	TTL    uint32
	Source Source
}

// NewRecord builds a record with the default TTL.
func NewRecord(zone, name, recordType, value string, source Source) Record {
	return Record{
		Zone:   zone,
		Name:   name,
		Type:   recordType,
		Value:  value,
		TTL:    DefaultTTL,
		Source: source,
	}
}

// Mode selects the mutation applied by Apply.
type Mode uint8

const (
	ModeAdd Mode = iota
	ModeDelete
)

// Updater pushes authenticated mutations to the nameserver.
type Updater interface {
	// Add upserts the record and its ownership tag, plus the derived reverse
	// record when one applies. Each part reports its own outcome.
	Add(ctx context.Context, record Record) ApplyResult
	// Delete removes every record at name in zone.
	Delete(ctx context.Context, zone, name string) error
}

// Lister reads back the records this client manages.
type Lister interface {
	ListManaged(ctx context.Context, zone string) (*ManagedRecords, error)
}

// Provider is a nameserver client that can both update and list.
type Provider interface {
	Updater
	Lister
}

// Apply dispatches record to u according to mode.
func Apply(ctx context.Context, u Updater, record Record, mode Mode) ApplyResult {
	if mode == ModeDelete {
		return ApplyResult{Forward: Outcome{Record: record, Err: u.Delete(ctx, record.Zone, record.Name)}}
	}
	return u.Add(ctx, record)
}
