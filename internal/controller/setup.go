package controller

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/bootstrap"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns/rfc2136"
)

// Setup runs the one-time bootstrap for cfg and returns an update client
// bound to the resulting TSIG key. Errors here are fatal to the service.
func Setup(log logr.Logger, cfg *config.Config) (*rfc2136.Provider, error) {
	hostIP, state, err := loadState(log, cfg)
	if err != nil {
		return nil, err
	}
	key, err := bootstrap.Provision(log.WithName("bootstrap"), cfg.Bootstrap(), state, hostIP)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return newProvider(log, cfg, hostIP, key)
}

// Connect returns an update client signed with the key persisted by an
// earlier bootstrap. It never writes to the bind home; an unprovisioned home
// yields bootstrap.ErrNotProvisioned.
func Connect(log logr.Logger, cfg *config.Config) (*rfc2136.Provider, error) {
	hostIP, state, err := loadState(log, cfg)
	if err != nil {
		return nil, err
	}
	key, err := bootstrap.LoadKey(log.WithName("bootstrap"), cfg.Bootstrap(), state, hostIP)
	if err != nil {
		return nil, err
	}
	return newProvider(log, cfg, hostIP, key)
}

func loadState(log logr.Logger, cfg *config.Config) (string, bootstrap.State, error) {
	hostIP := cfg.HostIP
	if hostIP == "" {
		ip, err := bootstrap.DetectHostIP(cfg.HostIPProbe, cfg.Timeout)
		if err != nil {
			return "", bootstrap.State{}, err
		}
		hostIP = ip
	}
	log.Info("host IP", "ip", hostIP, "overridden", cfg.HostIP != "")

	state, err := bootstrap.LoadState(cfg.BindHome, cfg.ClientName)
	if err != nil {
		return "", bootstrap.State{}, err
	}
	return hostIP, state, nil
}

func newProvider(log logr.Logger, cfg *config.Config, hostIP string, key bootstrap.Key) (*rfc2136.Provider, error) {
	return rfc2136.New(log.WithName("rfc2136"), rfc2136.Config{
		Server:      cfg.ServerAddress(hostIP),
		KeyName:     key.Name,
		Secret:      key.Secret,
		Algorithm:   key.Algorithm,
		ReverseZone: cfg.ReverseZone,
		Timeout:     cfg.Timeout,
	})
}
