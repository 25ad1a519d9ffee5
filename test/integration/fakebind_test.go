package integration

import (
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
)

// fakeBIND is a minimal in-memory primary nameserver: TSIG-checked RFC 2136
// updates and AXFR, nothing else.
type fakeBIND struct {
	mu              sync.Mutex
	zones           map[string][]mdns.RR // keyed by lowercased FQDN, SOA first
	refuseUpdates   bool
	refuseTransfers bool
	updates         int
}

func newFakeBIND() *fakeBIND {
	return &fakeBIND{zones: map[string][]mdns.RR{}}
}

// addZone seeds zone with a minimal SOA and NS.
func (f *fakeBIND) addZone(t *testing.T, zone string) {
	t.Helper()
	origin := mdns.Fqdn(zone)
	soa, err := mdns.NewRR(origin + " 86400 IN SOA ns.example.com. admin.example.com. 3 604800 86400 2419200 604800")
	if err != nil {
		t.Fatal(err)
	}
	ns, err := mdns.NewRR(origin + " 86400 IN NS ns.example.com.")
	if err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones[strings.ToLower(origin)] = []mdns.RR{soa, ns}
}

// loadZone reads a zone file the way the nameserver would at startup.
func (f *fakeBIND) loadZone(t *testing.T, zone, path string) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening zone file: %v", err)
	}
	defer file.Close()

	var rrs []mdns.RR
	zp := mdns.NewZoneParser(file, "", path)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		rrs = append(rrs, rr)
	}
	if err := zp.Err(); err != nil {
		t.Fatalf("parsing zone file %s: %v", path, err)
	}
	if len(rrs) == 0 || rrs[0].Header().Rrtype != mdns.TypeSOA {
		t.Fatalf("zone file %s does not start with an SOA", path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones[strings.ToLower(mdns.Fqdn(zone))] = rrs
}

// lookup returns the RRs of type rrtype at name.
func (f *fakeBIND) lookup(zone, name string, rrtype uint16) []mdns.RR {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mdns.RR
	for _, rr := range f.zones[strings.ToLower(mdns.Fqdn(zone))] {
		h := rr.Header()
		if strings.EqualFold(h.Name, name) && h.Rrtype == rrtype {
			out = append(out, rr)
		}
	}
	return out
}

func (f *fakeBIND) ServeDNS(w mdns.ResponseWriter, r *mdns.Msg) {
	m := new(mdns.Msg)
	m.SetReply(r)

	tsig := r.IsTsig()
	signed := tsig != nil && w.TsigStatus() == nil
	if signed {
		m.SetTsig(tsig.Hdr.Name, tsig.Algorithm, 300, time.Now().Unix())
	}

	switch {
	case len(r.Question) != 1:
		m.Rcode = mdns.RcodeFormatError
	case !signed:
		m.Rcode = mdns.RcodeNotAuth
	case r.Opcode == mdns.OpcodeUpdate:
		m.Rcode = f.update(strings.ToLower(r.Question[0].Name), r.Ns)
	case r.Question[0].Qtype == mdns.TypeAXFR:
		rcode := f.transfer(w, r)
		if rcode == mdns.RcodeSuccess {
			return
		}
		m.Rcode = rcode
	default:
		m.Rcode = mdns.RcodeNotImplemented
	}
	_ = w.WriteMsg(m)
}

func (f *fakeBIND) update(zone string, rrs []mdns.RR) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refuseUpdates {
		return mdns.RcodeRefused
	}
	records, ok := f.zones[zone]
	if !ok {
		return mdns.RcodeNotZone
	}

	for _, rr := range rrs {
		h := rr.Header()
		switch h.Class {
		case mdns.ClassANY:
			records = slices.DeleteFunc(records, func(x mdns.RR) bool {
				xh := x.Header()
				return strings.EqualFold(xh.Name, h.Name) && xh.Rrtype != mdns.TypeSOA &&
					(h.Rrtype == mdns.TypeANY || xh.Rrtype == h.Rrtype)
			})
		case mdns.ClassNONE:
			records = slices.DeleteFunc(records, func(x mdns.RR) bool {
				y := mdns.Copy(rr)
				y.Header().Class = mdns.ClassINET
				return mdns.IsDuplicate(x, y)
			})
		case mdns.ClassINET:
			if !slices.ContainsFunc(records, func(x mdns.RR) bool { return mdns.IsDuplicate(x, rr) }) {
				records = append(records, rr)
			}
		}
	}
	f.zones[zone] = records
	f.updates++
	return mdns.RcodeSuccess
}

func (f *fakeBIND) transfer(w mdns.ResponseWriter, r *mdns.Msg) int {
	f.mu.Lock()
	if f.refuseTransfers {
		f.mu.Unlock()
		return mdns.RcodeRefused
	}
	records, ok := f.zones[strings.ToLower(r.Question[0].Name)]
	if !ok {
		f.mu.Unlock()
		return mdns.RcodeNotAuth
	}
	rrs := append(slices.Clone(records), records[0])
	f.mu.Unlock()

	ch := make(chan *mdns.Envelope)
	tr := new(mdns.Transfer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tr.Out(w, r, ch)
	}()
	ch <- &mdns.Envelope{RR: rrs}
	close(ch)
	wg.Wait()
	_ = w.Close()
	return mdns.RcodeSuccess
}

// serve starts f on l, trusting secret for keyName.
func serve(t *testing.T, f *fakeBIND, l net.Listener, keyName, secret string) {
	t.Helper()
	started := make(chan struct{})
	srv := &mdns.Server{
		Listener:          l,
		Net:               "tcp",
		Handler:           f,
		TsigSecret:        map[string]string{mdns.Fqdn(keyName): secret},
		NotifyStartedFunc: func() { close(started) },
		MsgAcceptFunc:     func(mdns.Header) mdns.MsgAcceptAction { return mdns.MsgAccept },
	}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
}

// startFakeBIND serves f on a loopback port and returns its address.
func startFakeBIND(t *testing.T, f *fakeBIND, keyName, secret string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serve(t, f, l, keyName, secret)
	return l.Addr().String()
}
