package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrHostIPUnknown is returned when the outbound host address cannot be determined.
var ErrHostIPUnknown = errors.New("cannot determine host IP")

// DefaultProbe is the address used to pick the outbound interface. Nothing is
// sent: connecting a UDP socket only selects a route.
const DefaultProbe = "8.8.8.8:1"

// DetectHostIP returns the local address the kernel would use to reach probe.
func DetectHostIP(probe string, timeout time.Duration) (string, error) {
	if probe == "" {
		probe = DefaultProbe
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("udp4", probe)
	if err != nil {
		return "", fmt.Errorf("%w: probing %s: %w", ErrHostIPUnknown, probe, err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return "", fmt.Errorf("%w: no local address for %s", ErrHostIPUnknown, probe)
	}
	return addr.IP.String(), nil
}
