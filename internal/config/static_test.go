package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

func TestParseStaticRecords(t *testing.T) {
	t.Setenv("GATEWAY_IP", "172.17.1.1")
	data := []byte(`
example.com:
  www: "cname, one"
  one: "A,172.17.1.0"
  gw: "A,${GATEWAY_IP}"
1.17.172.in-addr.arpa:
  "5": "PTR,five.example.com."
`)

	got, err := ParseStaticRecords(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []dns.Record{
		dns.NewRecord("1.17.172.in-addr.arpa", "5", "PTR", "five.example.com.", dns.SourceStatic),
		dns.NewRecord("example.com", "gw", "A", "172.17.1.1", dns.SourceStatic),
		dns.NewRecord("example.com", "one", "A", "172.17.1.0", dns.SourceStatic),
		dns.NewRecord("example.com", "www", "CNAME", "one", dns.SourceStatic),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("static records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStaticRecords_Empty(t *testing.T) {
	got, err := ParseStaticRecords(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestParseStaticRecords_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing comma": "example.com:\n  one: \"A 172.17.1.0\"\n",
		"missing value": "example.com:\n  one: \"A,\"\n",
		"missing type":  "example.com:\n  one: \",172.17.1.0\"\n",
		"invalid A":     "example.com:\n  one: \"A,172.17.1\"\n",
		"unknown type":  "example.com:\n  one: \"BOGUS,x\"\n",
	}
	for desc, data := range tests {
		t.Run(desc, func(t *testing.T) {
			_, err := ParseStaticRecords([]byte(data))
			if !errors.Is(err, ErrInvalidStaticRecord) {
				t.Errorf("expected ErrInvalidStaticRecord, got %v", err)
			}
		})
	}

	if _, err := ParseStaticRecords([]byte("- not\n- a map\n")); err == nil {
		t.Error("expected error for non-map document, got nil")
	}
}
