// Package bootstrap provisions the nameserver's configuration, zone file
// skeletons and TSIG key the first time the service starts on a host.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	mdns "github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

// ErrHostIPChanged is returned when the host IP differs from the one recorded
// by the first bootstrap.
var ErrHostIPChanged = errors.New("host IP changed since bootstrap")

// ErrNotProvisioned is returned when a command needs the persisted TSIG key
// but the home directory was never bootstrapped.
var ErrNotProvisioned = errors.New("nameserver not bootstrapped")

// Grantee values for Config.UpdatePolicy.
const (
	PolicyKey = "key"
	PolicyAny = "any"
)

// Config is the input of a bootstrap.
type Config struct {
	ClientName         string
	Zone               string
	ReverseZone        string
	NameserverHostname string
	NameserverEmail    string
	TrustedCIDRs       []string
	Forwarders         []string
	// UpdatePolicy is PolicyKey to grant updates to the client key only, or
	// PolicyAny to grant them to any signed request.
	UpdatePolicy string
	// CacheDirectory is the named working directory, /var/cache/bind when empty.
	CacheDirectory string
}

// Plan is the full set of artifacts a first bootstrap writes, apart from the key.
type Plan struct {
	Options   Options
	Zones     []ZoneStanza
	ZoneFiles map[string]ZoneFile
}

// NewPlan builds the structured configuration for cfg on a host reachable at hostIP.
func NewPlan(cfg Config, state State, hostIP string) (Plan, error) {
	home, err := filepath.Abs(state.Home)
	if err != nil {
		return Plan{}, fmt.Errorf("resolving bind home: %w", err)
	}
	state.Home = home

	directory := cfg.CacheDirectory
	if directory == "" {
		directory = "/var/cache/bind"
	}

	grantee := mdns.Fqdn(cfg.ClientName)
	if cfg.UpdatePolicy == PolicyAny {
		grantee = "*"
	}

	plan := Plan{
		Options: Options{
			Directory: directory,
			Trusted: ACL{
				Name:    "trusted",
				Entries: append([]string{"localhost", "localnets", "127.0.0.1"}, cfg.TrustedCIDRs...),
			},
			Forwarders: cfg.Forwarders,
			ListenOn:   []string{"any"},
			ListenOnV6: []string{"any"},
			Includes:   []string{state.KeyFile()},
		},
		ZoneFiles: make(map[string]ZoneFile),
	}

	nsRecord := dns.NewRecord(cfg.Zone, cfg.NameserverHostname, "A", hostIP, dns.SourceStatic)
	nsA, err := nsRecord.ToRR()
	if err != nil {
		return Plan{}, fmt.Errorf("nameserver record: %w", err)
	}

	zones := []string{cfg.Zone}
	if cfg.ReverseZone != "" {
		zones = append(zones, cfg.ReverseZone)
	}
	for _, zone := range zones {
		plan.Zones = append(plan.Zones, ZoneStanza{
			Name:        zone,
			File:        state.ZoneFile(zone),
			Grantee:     grantee,
			TransferKey: cfg.ClientName,
		})

		zf := skeleton(zone, cfg)
		switch zone {
		case cfg.Zone:
			zf.Records = append(zf.Records, nsA)
		case cfg.ReverseZone:
			if ptr, ok := dns.ReverseRecord(nsRecord, cfg.ReverseZone); ok {
				rr, err := ptr.ToRR()
				if err != nil {
					return Plan{}, fmt.Errorf("nameserver reverse record: %w", err)
				}
				zf.Records = append(zf.Records, rr)
			}
		}
		plan.ZoneFiles[zone] = zf
	}
	return plan, nil
}

// skeleton returns the SOA and NS records of zone. The nameserver always lives
// in the primary zone, also for the reverse zone.
func skeleton(zone string, cfg Config) ZoneFile {
	origin := mdns.Fqdn(zone)
	ns := dns.Fqdn(cfg.NameserverHostname, cfg.Zone)

	return ZoneFile{
		Origin: origin,
		TTL:    DefaultZoneTTL,
		Records: []mdns.RR{
			&mdns.SOA{
				Hdr:     mdns.RR_Header{Name: origin, Rrtype: mdns.TypeSOA, Class: mdns.ClassINET, Ttl: DefaultZoneTTL},
				Ns:      ns,
				Mbox:    mailbox(cfg.NameserverEmail, cfg.Zone),
				Serial:  InitialSerial,
				Refresh: SOARefresh,
				Retry:   SOARetry,
				Expire:  SOAExpire,
				Minttl:  SOANegativeTTL,
			},
			&mdns.NS{
				Hdr: mdns.RR_Header{Name: origin, Rrtype: mdns.TypeNS, Class: mdns.ClassINET, Ttl: DefaultZoneTTL},
				Ns:  ns,
			},
		},
	}
}

// mailbox converts admin@example.com into the SOA RNAME admin.example.com.
func mailbox(email, zone string) string {
	if email == "" {
		return "admin." + mdns.Fqdn(zone)
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return mdns.Fqdn(email)
	}
	return strings.ReplaceAll(local, ".", "\\.") + "." + mdns.Fqdn(domain)
}

// LoadKey returns the TSIG key of a completed bootstrap without writing
// anything. The recorded host IP must match hostIP.
func LoadKey(log logr.Logger, cfg Config, state State, hostIP string) (Key, error) {
	if hostIP == "" {
		return Key{}, ErrHostIPUnknown
	}
	if !state.Provisioned() {
		return Key{}, fmt.Errorf("%w: no marker in %s, run bootstrap first", ErrNotProvisioned, state.Home)
	}
	if state.RecordedIP != hostIP {
		log.Error(ErrHostIPChanged, "refusing to start", "recordedIP", state.RecordedIP, "hostIP", hostIP)
		return Key{}, fmt.Errorf("%w: bootstrapped on %s, now %s: either run on %s or wipe %s and restart",
			ErrHostIPChanged, state.RecordedIP, hostIP, state.RecordedIP, state.Home)
	}
	data, err := os.ReadFile(state.KeyFile())
	if err != nil {
		return Key{}, fmt.Errorf("reading TSIG key: %w", err)
	}
	return ParseKey(cfg.ClientName, data)
}

// Provision runs the one-time bootstrap described by cfg and returns the TSIG
// key the client must sign with.
//
// When state shows a completed bootstrap, nothing is written and the result
// is that of LoadKey. Otherwise every artifact is (re)written and the marker
// goes last, so a crash before the marker leaves the home directory "not
// bootstrapped".
func Provision(log logr.Logger, cfg Config, state State, hostIP string) (Key, error) {
	if state.Provisioned() {
		key, err := LoadKey(log, cfg, state, hostIP)
		if err != nil {
			return Key{}, err
		}
		log.Info("already bootstrapped, reusing TSIG key", "hostIP", hostIP, "keyFile", state.KeyFile())
		return key, nil
	}
	if hostIP == "" {
		return Key{}, ErrHostIPUnknown
	}
	if err := os.MkdirAll(state.Home, 0o755); err != nil {
		return Key{}, fmt.Errorf("creating bind home %s: %w", state.Home, err)
	}

	log.Info("bootstrapping nameserver", "home", state.Home, "hostIP", hostIP, "zone", cfg.Zone, "reverseZone", cfg.ReverseZone)

	plan, err := NewPlan(cfg, state, hostIP)
	if err != nil {
		return Key{}, err
	}
	if err := writeFile(state.OptionsFile(), plan.Options.String(), 0o644); err != nil {
		return Key{}, err
	}
	if err := writeFile(state.LocalFile(), renderLocal(plan.Zones), 0o644); err != nil {
		return Key{}, err
	}
	for _, z := range plan.Zones {
		if err := writeFile(z.File, plan.ZoneFiles[z.Name].String(), 0o644); err != nil {
			return Key{}, err
		}
	}

	key, err := GenerateKey(cfg.ClientName)
	if err != nil {
		return Key{}, err
	}
	if err := writeFile(state.KeyFile(), key.String(), 0o640); err != nil {
		return Key{}, err
	}

	if err := writeFile(state.MarkerFile(), hostIP, 0o644); err != nil {
		return Key{}, err
	}
	log.Info("bootstrap completed", "marker", state.MarkerFile())
	return key, nil
}

// writeFile replaces path atomically.
func writeFile(path, content string, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp to %s: %w", path, err)
	}
	return nil
}
