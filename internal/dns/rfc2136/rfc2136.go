package rfc2136

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	mdns "github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/metrics"
)

const (
	// DefaultTimeout bounds every exchange with the nameserver.
	DefaultTimeout = 2 * time.Second
	// DefaultAlgorithm matches what tsig-keygen generates.
	DefaultAlgorithm = mdns.HmacSHA256

	tsigFudge = 300
)

// upsertTypes hold a single logical answer per name; adding one replaces the
// previous RRset instead of accumulating stale values.
var upsertTypes = map[uint16]bool{
	mdns.TypeA:     true,
	mdns.TypeCNAME: true,
	mdns.TypePTR:   true,
}

// Config holds the connection and trust settings for the nameserver.
type Config struct {
	Server      string // host:port of the nameserver
	KeyName     string // TSIG key name, the client identity
	Secret      string // base64 TSIG secret
	Algorithm   string // TSIG algorithm, DefaultAlgorithm when empty
	ReverseZone string // optional in-addr.arpa zone for derived PTR records
	Timeout     time.Duration
}

// Provider implements dns.Updater and dns.Lister against a nameserver that
// speaks RFC 2136 dynamic update and AXFR, authenticated with TSIG.
type Provider struct {
	server      string
	keyName     string
	clientName  string
	algorithm   string
	secrets     map[string]string
	reverseZone string
	timeout     time.Duration
	client      *mdns.Client
	log         logr.Logger
}

// New creates a Provider from cfg.
// Required: Server, KeyName, Secret.
func New(log logr.Logger, cfg Config) (*Provider, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting 'server'")
	}
	if cfg.KeyName == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting 'key_name'")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("rfc2136: missing required setting 'secret'")
	}
	if _, _, err := net.SplitHostPort(cfg.Server); err != nil {
		return nil, fmt.Errorf("rfc2136: invalid server address %q: %w", cfg.Server, err)
	}

	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	keyName := mdns.Fqdn(cfg.KeyName)
	secrets := map[string]string{keyName: cfg.Secret}

	return &Provider{
		server:      cfg.Server,
		keyName:     keyName,
		clientName:  cfg.KeyName,
		algorithm:   mdns.Fqdn(algorithm),
		secrets:     secrets,
		reverseZone: cfg.ReverseZone,
		timeout:     timeout,
		client: &mdns.Client{
			Net:        "tcp",
			Timeout:    timeout,
			TsigSecret: secrets,
		},
		log: log,
	}, nil
}

// ClientName is the identity written into ownership tags.
func (p *Provider) ClientName() string {
	return p.clientName
}

// Add upserts record with its ownership tag in one transaction and, for A
// records inside the reverse zone, the derived PTR record in a second one.
func (p *Provider) Add(ctx context.Context, record dns.Record) dns.ApplyResult {
	res := dns.ApplyResult{
		Forward: dns.Outcome{Record: record, Err: p.upsert(ctx, record)},
	}
	if reverse, ok := dns.ReverseRecord(record, p.reverseZone); ok {
		res.Reverse = &dns.Outcome{Record: reverse, Err: p.upsert(ctx, reverse)}
	} else {
		p.log.V(1).Info("no reverse record derived", "name", record.Name, "type", record.Type, "reverseZone", p.reverseZone)
	}
	return res
}

func (p *Provider) upsert(ctx context.Context, record dns.Record) error {
	p.log.Info("adding record", "record", record.String())

	if err := record.Validate(); err != nil {
		return fmt.Errorf("rfc2136: %w", err)
	}
	rr, err := record.ToRR()
	if err != nil {
		return fmt.Errorf("rfc2136: %w", err)
	}
	owner, err := dns.OwnershipRecord(record, p.clientName).ToRR()
	if err != nil {
		return fmt.Errorf("rfc2136: ownership tag: %w", err)
	}

	m := new(mdns.Msg)
	m.SetUpdate(mdns.Fqdn(record.Zone))
	if upsertTypes[rr.Header().Rrtype] {
		m.RemoveRRset([]mdns.RR{rr})
	}
	m.Insert([]mdns.RR{rr, owner})

	err = p.exchange(ctx, m)
	metrics.UpdateCount.WithLabelValues(record.Zone, "add", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("rfc2136: add %s %s in zone %s: %w", record.Fqdn(), record.Type, record.Zone, err)
	}
	return nil
}

// Delete removes every RRset at name in zone.
func (p *Provider) Delete(ctx context.Context, zone, name string) error {
	fqdn := dns.Fqdn(name, zone)
	p.log.Info("removing record", "name", fqdn, "zone", zone)

	m := new(mdns.Msg)
	m.SetUpdate(mdns.Fqdn(zone))
	m.RemoveName([]mdns.RR{&mdns.ANY{Hdr: mdns.RR_Header{Name: fqdn}}})

	err := p.exchange(ctx, m)
	metrics.UpdateCount.WithLabelValues(zone, "delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("rfc2136: delete %s in zone %s: %w", fqdn, zone, err)
	}
	return nil
}

// exchange signs m and sends it over TCP, translating failures into the
// package's error kinds.
func (p *Provider) exchange(ctx context.Context, m *mdns.Msg) error {
	m.SetTsig(p.keyName, p.algorithm, tsigFudge, time.Now().Unix())

	resp, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil {
		return classify(err)
	}
	if resp.Rcode != mdns.RcodeSuccess {
		return rcodeError(resp.Rcode)
	}
	p.log.V(1).Info("update accepted", "zone", m.Question[0].Name, "id", resp.Id)
	return nil
}

// classify maps a client-side error onto ErrUnauthorized or ErrTransport.
func classify(err error) error {
	switch {
	case errors.Is(err, mdns.ErrSig), errors.Is(err, mdns.ErrSecret),
		errors.Is(err, mdns.ErrKeyAlg), errors.Is(err, mdns.ErrTime),
		errors.Is(err, mdns.ErrNoSig):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
