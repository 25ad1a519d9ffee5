package rfc2136

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/metrics"
)

// node collects the transferred RRs of one owner name.
type node struct {
	name    string
	rrs     []mdns.RR
	source  dns.Source
	managed bool
}

// ListManaged transfers zone and returns the value records found at names
// that carry one of this client's ownership tags.
func (p *Provider) ListManaged(ctx context.Context, zone string) (*dns.ManagedRecords, error) {
	rrs, err := p.transfer(ctx, zone)
	metrics.TransferCount.WithLabelValues(zone, metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("rfc2136: transfer zone %s: %w", zone, err)
	}

	managed := collectManaged(zone, p.clientName, rrs)
	metrics.ManagedNames.WithLabelValues(zone).Set(float64(managed.Len()))
	p.log.V(1).Info("listed managed records", "zone", zone, "rrs", len(rrs), "managed", managed.Len())
	return managed, nil
}

func (p *Provider) transfer(ctx context.Context, zone string) ([]mdns.RR, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	t := &mdns.Transfer{
		DialTimeout:  p.timeout,
		ReadTimeout:  p.timeout,
		WriteTimeout: p.timeout,
		TsigSecret:   p.secrets,
	}
	m := new(mdns.Msg)
	m.SetAxfr(mdns.Fqdn(zone))
	m.SetTsig(p.keyName, p.algorithm, tsigFudge, time.Now().Unix())

	ch, err := t.In(m, p.server)
	if err != nil {
		return nil, classify(err)
	}

	var rrs []mdns.RR
	var firstErr error
	for env := range ch {
		if env.Error != nil {
			if firstErr == nil {
				firstErr = classifyTransfer(env.Error)
			}
			continue
		}
		rrs = append(rrs, env.RR...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return rrs, nil
}

// classifyTransfer separates answered-but-refused transfers from transport
// failures. The transfer API only surfaces the rcode inside the error text.
func classifyTransfer(err error) error {
	var dnsErr *mdns.Error
	if errors.As(err, &dnsErr) && strings.Contains(dnsErr.Error(), "rcode") {
		switch {
		case strings.HasSuffix(dnsErr.Error(), fmt.Sprintf(": %d", mdns.RcodeNotAuth)):
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case strings.HasSuffix(dnsErr.Error(), fmt.Sprintf(": %d", mdns.RcodeRefused)):
			return fmt.Errorf("%w: %w", ErrPolicyDenied, err)
		}
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return classify(err)
}

// collectManaged groups rrs by owner name in first-seen order and keeps the
// value records of the names tagged by clientName.
func collectManaged(zone, clientName string, rrs []mdns.RR) *dns.ManagedRecords {
	var order []*node
	nodes := make(map[string]*node)

	for _, rr := range rrs {
		hdr := rr.Header()
		key := strings.ToLower(hdr.Name)
		n, ok := nodes[key]
		if !ok {
			n = &node{name: hdr.Name}
			nodes[key] = n
			order = append(order, n)
		}

		if txt, ok := rr.(*mdns.TXT); ok {
			if src, ok := dns.ParseOwnershipTag(clientName, strings.Join(txt.Txt, "")); ok && !n.managed {
				n.managed = true
				n.source = src
			}
			continue
		}
		n.rrs = append(n.rrs, rr)
	}

	managed := dns.NewManagedRecords()
	for _, n := range order {
		if !n.managed {
			continue
		}
		name := dns.RelativeName(n.name, zone)
		managed.Append(name)
		for _, rr := range n.rrs {
			if dns.ValueTypes[rr.Header().Rrtype] {
				managed.Append(name, dns.FromRR(zone, rr, n.source))
			}
		}
	}
	return managed
}
