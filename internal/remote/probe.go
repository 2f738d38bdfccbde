package remote

import (
	"context"
	"net"
	"net/url"
	"time"
)

const probeTimeout = 2 * time.Second

// Probe answers "does the network look up right now?" with a cheap TCP
// dial to the catalog host. Purely advisory: a true answer is no promise
// the next request succeeds, it only avoids pointless fetch attempts
// while offline.
type Probe struct {
	addr   string
	dialer *net.Dialer
}

// NewProbe constructs a Probe for the host of baseURL.
func NewProbe(baseURL string) (*Probe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	return &Probe{addr: host, dialer: &net.Dialer{Timeout: probeTimeout}}, nil
}

// Available reports current reachability of the catalog host.
func (p *Probe) Available(ctx context.Context) bool {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
