package source

import (
	"context"
	"slices"
	"testing"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
)

type staticLister struct {
	records []dns.Record
}

func (s *staticLister) List(context.Context) ([]dns.Record, error) {
	return s.records, nil
}

func TestRegistry(t *testing.T) {
	Register("test-static", func(_ logr.Logger, settings map[string]string) (Lister, error) {
		return &staticLister{records: []dns.Record{
			dns.NewRecord(settings["zone"], "app", "A", "10.0.0.5", dns.SourceDocker),
		}}, nil
	})

	if !slices.Contains(Registered(), "test-static") {
		t.Fatalf("expected test-static to be registered, got %v", Registered())
	}

	l, err := New("test-static", logr.Discard(), map[string]string{"zone": "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs, err := l.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Zone != "example.com" {
		t.Errorf("expected one record in example.com, got %v", recs)
	}
}

func TestNew_UnknownSource(t *testing.T) {
	if _, err := New("does-not-exist", logr.Discard(), nil); err == nil {
		t.Fatal("expected error for unknown source, got nil")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	f := func(logr.Logger, map[string]string) (Lister, error) { return &staticLister{}, nil }
	Register("test-dup", f)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("test-dup", f)
}
