package rfc2136

import (
	"errors"
	"fmt"

	mdns "github.com/miekg/dns"
)

var (
	// ErrTransport means the nameserver could not be reached in time.
	ErrTransport = errors.New("nameserver unreachable")
	// ErrUnauthorized means the TSIG signature was rejected, by either side.
	ErrUnauthorized = errors.New("not authorized")
	// ErrPolicyDenied means the update-policy refused the change.
	ErrPolicyDenied = errors.New("denied by update policy")
	// ErrRejected covers every other non-success response code.
	ErrRejected = errors.New("rejected by nameserver")
)

// rcodeError wraps the sentinel matching a non-success response code.
func rcodeError(rcode int) error {
	kind := ErrRejected
	switch rcode {
	case mdns.RcodeNotAuth:
		kind = ErrUnauthorized
	case mdns.RcodeRefused:
		kind = ErrPolicyDenied
	}
	return fmt.Errorf("%w (rcode %s)", kind, mdns.RcodeToString[rcode])
}

// Kind names the failure class of err for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPolicyDenied):
		return "policy"
	case errors.Is(err, ErrRejected):
		return "rejected"
	default:
		return "invalid"
	}
}
