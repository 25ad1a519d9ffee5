package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/bootstrap"
)

func setEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("BIND_HOME", home)
	t.Setenv("ZONE", "example.com")
	t.Setenv("REVERSE_ZONE", "1.168.192.in-addr.arpa")
	t.Setenv("NAMESERVER_HOSTNAME", "ns")
	t.Setenv("TRUSTED_CIDRS", "192.168.1.0/24")
	t.Setenv("DNS_FORWARDERS", "1.1.1.1")
	t.Setenv("HOST_IP", "192.168.1.10")
}

func execute(args ...string) (string, error) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReadOnlyCommandsDoNotBootstrap(t *testing.T) {
	for _, args := range [][]string{
		{"list"},
		{"list", "--zone", "example.com"},
		{"delete", "app"},
	} {
		t.Run(args[0], func(t *testing.T) {
			home := t.TempDir()
			setEnv(t, home)

			_, err := execute(args...)
			if !errors.Is(err, bootstrap.ErrNotProvisioned) {
				t.Fatalf("expected ErrNotProvisioned, got %v", err)
			}
			entries, err := os.ReadDir(home)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("expected empty bind home, found %d entries", len(entries))
			}
		})
	}
}

func TestBootstrapCommandProvisions(t *testing.T) {
	home := t.TempDir()
	setEnv(t, home)

	out, err := execute("bootstrap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "bootstrapped example.com in " + home + "\n"; out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	if _, err := os.Stat(filepath.Join(home, ".bind-ddns.init")); err != nil {
		t.Errorf("expected bootstrap marker: %v", err)
	}
}

func TestDeleteRequiresName(t *testing.T) {
	setEnv(t, t.TempDir())
	if _, err := execute("delete"); err == nil {
		t.Fatal("expected an argument error")
	}
}
