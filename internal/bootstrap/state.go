package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// State is what a previous bootstrap left behind in the home directory. It is
// read once at startup and handed to Provision.
type State struct {
	Home       string
	ClientName string
	// RecordedIP is the host IP written by the first bootstrap, empty when
	// the home directory was never provisioned.
	RecordedIP string
}

// LoadState reads the completion marker of clientName under home.
func LoadState(home, clientName string) (State, error) {
	s := State{Home: home, ClientName: clientName}
	data, err := os.ReadFile(s.MarkerFile())
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading bootstrap marker: %w", err)
	}
	s.RecordedIP = strings.TrimSpace(string(data))
	return s, nil
}

// Provisioned reports whether a completed bootstrap was found.
func (s State) Provisioned() bool {
	return s.RecordedIP != ""
}

// MarkerFile is written last by a successful bootstrap and holds the host IP.
func (s State) MarkerFile() string {
	return filepath.Join(s.Home, "."+s.ClientName+".init")
}

// KeyFile holds the generated TSIG key in named.conf syntax.
func (s State) KeyFile() string {
	return filepath.Join(s.Home, s.ClientName+".key")
}

// OptionsFile is the global named options file.
func (s State) OptionsFile() string {
	return filepath.Join(s.Home, "named.conf.options")
}

// LocalFile holds the zone stanzas.
func (s State) LocalFile() string {
	return filepath.Join(s.Home, "named.conf.local")
}

// ZoneFile is the path of the zone file for zone.
func (s State) ZoneFile(zone string) string {
	return filepath.Join(s.Home, strings.TrimSuffix(zone, "."))
}
