package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

// ErrInvalidStaticRecord is returned for a malformed static record declaration.
var ErrInvalidStaticRecord = errors.New("invalid static record")

// LoadStaticRecords reads a YAML file declaring operator records:
//
//	example.com:
//	  one: "A,172.17.1.0"
//	  www: "CNAME,one"
//
// Values may reference ${ENV_VAR}. Records come back ordered by zone, then
// hostname, and carry the static source.
func LoadStaticRecords(path string) ([]dns.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading static records file: %w", err)
	}
	return ParseStaticRecords(data)
}

// ParseStaticRecords parses the YAML document described in LoadStaticRecords.
func ParseStaticRecords(data []byte) ([]dns.Record, error) {
	zones := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("parsing static records file: %w", err)
	}

	var records []dns.Record
	for _, zone := range slices.Sorted(maps.Keys(zones)) {
		hosts := zones[zone]
		for _, host := range slices.Sorted(maps.Keys(hosts)) {
			record, err := parseStaticRecord(zone, host, os.ExpandEnv(hosts[host]))
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// parseStaticRecord turns "TYPE,value" into a record.
func parseStaticRecord(zone, host, decl string) (dns.Record, error) {
	recordType, value, ok := strings.Cut(decl, ",")
	recordType = strings.ToUpper(strings.TrimSpace(recordType))
	value = strings.TrimSpace(value)
	if !ok || recordType == "" || value == "" {
		return dns.Record{}, fmt.Errorf("%w: %s in zone %s: %q is not \"type,value\"", ErrInvalidStaticRecord, host, zone, decl)
	}

	record := dns.NewRecord(zone, host, recordType, value, dns.SourceStatic)
	if err := record.Validate(); err != nil {
		return dns.Record{}, fmt.Errorf("%w: %w", ErrInvalidStaticRecord, err)
	}
	return record, nil
}
