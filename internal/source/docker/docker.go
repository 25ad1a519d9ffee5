package docker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/source"
)

func init() {
	source.Register("docker", func(log logr.Logger, settings map[string]string) (source.Lister, error) {
		return New(log, settings)
	})
}

// containerAPI is the part of the docker client the lister needs.
type containerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// Labels are the container labels carrying record intent.
type Labels struct {
	Hostname   string
	RecordType string
	Value      string
	Network    string
}

// LabelsWithPrefix returns the label set under prefix, e.g.
// "yk.bind-ddns" → "yk.bind-ddns.hostname".
func LabelsWithPrefix(prefix string) Labels {
	return Labels{
		Hostname:   prefix + ".hostname",
		RecordType: prefix + ".record-type",
		Value:      prefix + ".value",
		Network:    prefix + ".network",
	}
}

// Lister derives candidate records from running docker containers.
type Lister struct {
	api    containerAPI
	zone   string
	labels Labels
	log    logr.Logger
}

// New creates a docker Lister from the given settings map.
// Required settings: zone, label_prefix.
// The docker client is configured from the environment (DOCKER_HOST, ...).
func New(log logr.Logger, settings map[string]string) (*Lister, error) {
	zone := settings["zone"]
	if zone == "" {
		return nil, fmt.Errorf("docker: missing required setting 'zone'")
	}
	prefix := settings["label_prefix"]
	if prefix == "" {
		return nil, fmt.Errorf("docker: missing required setting 'label_prefix'")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}
	return NewWithClient(log, cli, zone, LabelsWithPrefix(prefix)), nil
}

// NewWithClient creates a Lister over an existing docker API client.
func NewWithClient(log logr.Logger, api containerAPI, zone string, labels Labels) *Lister {
	return &Lister{api: api, zone: zone, labels: labels, log: log}
}

// List returns one record per running container that carries a hostname
// label, ordered by container name.
func (l *Lister) List(ctx context.Context) ([]dns.Record, error) {
	containers, err := l.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: listing containers: %w", err)
	}
	slices.SortFunc(containers, func(a, b types.Container) int {
		return strings.Compare(containerName(a), containerName(b))
	})

	var records []dns.Record
	for _, c := range containers {
		if record, ok := l.recordFor(c); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (l *Lister) recordFor(c types.Container) (dns.Record, bool) {
	name := containerName(c)

	hostname := c.Labels[l.labels.Hostname]
	if hostname == "" {
		l.log.Info("no hostname label present for container, ignoring",
			"severity", "warning", "container", name, "label", l.labels.Hostname)
		return dns.Record{}, false
	}

	var record dns.Record
	if recordType := c.Labels[l.labels.RecordType]; recordType != "" {
		value := c.Labels[l.labels.Value]
		if value == "" {
			l.log.Error(nil, "record type label set without value label, ignoring",
				"container", name, "typeLabel", l.labels.RecordType, "valueLabel", l.labels.Value)
			return dns.Record{}, false
		}
		record = dns.NewRecord(l.zone, hostname, strings.ToUpper(recordType), value, dns.SourceDocker)
	} else {
		ip := l.containerIP(c)
		if ip == "" {
			l.log.Info("no IP found for container, ignoring", "container", name)
			return dns.Record{}, false
		}
		record = dns.NewRecord(l.zone, hostname, "A", ip, dns.SourceDocker)
	}

	if err := record.Validate(); err != nil {
		l.log.Error(err, "invalid record intent, ignoring", "container", name)
		return dns.Record{}, false
	}
	l.log.V(1).Info("container record", "container", name, "record", record.String())
	return record, true
}

// containerIP resolves the address on the labelled network, else on the
// container's default network, else on the first network that has one.
func (l *Lister) containerIP(c types.Container) string {
	if c.NetworkSettings == nil {
		return ""
	}
	networks := c.NetworkSettings.Networks

	if want := c.Labels[l.labels.Network]; want != "" {
		if ep, ok := networks[want]; ok && ep != nil {
			return ep.IPAddress
		}
		l.log.Info("labelled network not attached to container", "container", containerName(c), "network", want)
		return ""
	}

	mode := c.HostConfig.NetworkMode
	if mode == "default" {
		mode = "bridge"
	}
	if ep, ok := networks[mode]; ok && ep != nil && ep.IPAddress != "" {
		return ep.IPAddress
	}

	names := make([]string, 0, len(networks))
	for n := range networks {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if ep := networks[n]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress
		}
	}
	return ""
}

func containerName(c types.Container) string {
	if len(c.Names) == 0 {
		return c.ID
	}
	return strings.TrimPrefix(c.Names[0], "/")
}
