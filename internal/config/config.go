package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/bootstrap"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

var (
	// ErrMissingSetting is returned when a required variable is unset.
	ErrMissingSetting = errors.New("missing required setting")
	// ErrInvalidSetting is returned when a variable cannot be parsed.
	ErrInvalidSetting = errors.New("invalid setting")
)

// Defaults for optional settings.
const (
	DefaultBindHome     = "/etc/bind"
	DefaultClientName   = "bind-ddns"
	DefaultPollInterval = 60 * time.Second
	DefaultTimeout      = 2 * time.Second
	DefaultSource       = "docker"
	DefaultLabelPrefix  = "yk.bind-ddns"
	DefaultEnvFile      = ".env"
)

// Config holds every setting of the service.
type Config struct {
	BindHome           string
	TrustedCIDRs       []string
	DNSForwarders      []string
	Zone               string
	ReverseZone        string
	NameserverHostname string
	NameserverEmail    string
	ClientName         string
	UpdatePolicy       string

	// NameserverAddress is host:port of the nameserver; empty means the
	// detected host IP on port 53.
	NameserverAddress string
	// HostIP overrides host IP detection.
	HostIP       string
	HostIPProbe  string
	PollInterval time.Duration
	Timeout      time.Duration

	StaticRecordsPath string
	StaticRecords     []dns.Record

	Source         string
	SourceSettings map[string]string

	MetricsAddress string
}

// Load reads the dotenv file named by ENV_FILE (default ".env", skipped when
// absent) without overriding variables already set, then builds the Config
// from the process environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	required := func(key string) (string, error) {
		v := get(key, "")
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingSetting, key)
		}
		return v, nil
	}

	cfg := &Config{
		BindHome:          get("BIND_HOME", DefaultBindHome),
		ReverseZone:       strings.TrimSuffix(get("REVERSE_ZONE", ""), "."),
		NameserverEmail:   get("NAMESERVER_EMAIL", ""),
		ClientName:        get("CLIENT_NAME", DefaultClientName),
		UpdatePolicy:      strings.ToLower(get("UPDATE_POLICY", bootstrap.PolicyKey)),
		NameserverAddress: get("NAMESERVER_ADDRESS", ""),
		HostIP:            get("HOST_IP", ""),
		HostIPProbe:       get("HOST_IP_PROBE", bootstrap.DefaultProbe),
		StaticRecordsPath: get("STATIC_RECORDS_PATH", ""),
		Source:            get("SOURCE", DefaultSource),
		MetricsAddress:    get("METRICS_ADDRESS", ""),
	}

	var err error
	if cfg.Zone, err = required("ZONE"); err != nil {
		return nil, err
	}
	cfg.Zone = strings.TrimSuffix(cfg.Zone, ".")
	if cfg.NameserverHostname, err = required("NAMESERVER_HOSTNAME"); err != nil {
		return nil, err
	}

	trusted, err := required("TRUSTED_CIDRS")
	if err != nil {
		return nil, err
	}
	if cfg.TrustedCIDRs, err = parseList("TRUSTED_CIDRS", trusted, validAddressMatch); err != nil {
		return nil, err
	}
	forwarders, err := required("DNS_FORWARDERS")
	if err != nil {
		return nil, err
	}
	if cfg.DNSForwarders, err = parseList("DNS_FORWARDERS", forwarders, validAddress); err != nil {
		return nil, err
	}

	if cfg.UpdatePolicy != bootstrap.PolicyKey && cfg.UpdatePolicy != bootstrap.PolicyAny {
		return nil, fmt.Errorf("%w: UPDATE_POLICY %q must be %q or %q", ErrInvalidSetting, cfg.UpdatePolicy, bootstrap.PolicyKey, bootstrap.PolicyAny)
	}
	if cfg.HostIP != "" && !validAddress(cfg.HostIP) {
		return nil, fmt.Errorf("%w: HOST_IP %q is not an IP address", ErrInvalidSetting, cfg.HostIP)
	}
	if cfg.NameserverAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.NameserverAddress); err != nil {
			cfg.NameserverAddress = net.JoinHostPort(cfg.NameserverAddress, "53")
		}
	}

	if cfg.PollInterval, err = parseDuration(get("POLL_INTERVAL", ""), "POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = parseDuration(get("UPDATE_TIMEOUT", ""), "UPDATE_TIMEOUT", DefaultTimeout); err != nil {
		return nil, err
	}

	if cfg.StaticRecordsPath != "" {
		if cfg.StaticRecords, err = LoadStaticRecords(cfg.StaticRecordsPath); err != nil {
			return nil, err
		}
	}

	cfg.SourceSettings = map[string]string{
		"zone":         cfg.Zone,
		"label_prefix": get("CONTAINER_LABEL_PREFIX", DefaultLabelPrefix),
	}
	return cfg, nil
}

// Bootstrap returns the provisioning input derived from the config.
func (c *Config) Bootstrap() bootstrap.Config {
	return bootstrap.Config{
		ClientName:         c.ClientName,
		Zone:               c.Zone,
		ReverseZone:        c.ReverseZone,
		NameserverHostname: c.NameserverHostname,
		NameserverEmail:    c.NameserverEmail,
		TrustedCIDRs:       c.TrustedCIDRs,
		Forwarders:         c.DNSForwarders,
		UpdatePolicy:       c.UpdatePolicy,
	}
}

// ServerAddress returns where updates and transfers are sent.
func (c *Config) ServerAddress(hostIP string) string {
	if c.NameserverAddress != "" {
		return c.NameserverAddress
	}
	return net.JoinHostPort(hostIP, "53")
}

func parseList(key, raw string, valid func(string) bool) ([]string, error) {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !valid(item) {
			return nil, fmt.Errorf("%w: %s entry %q", ErrInvalidSetting, key, item)
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSetting, key)
	}
	return out, nil
}

func parseDuration(raw, key string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidSetting, key)
	}
	return d, nil
}

func validAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// validAddressMatch accepts an address or a CIDR prefix.
func validAddressMatch(s string) bool {
	if validAddress(s) {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}
