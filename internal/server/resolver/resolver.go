// Package resolver turns realm host strings into IP addresses.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/dmitrijs2005/realmd/internal/logging"
)

const DefaultTimeout = 5 * time.Second

// Lookup is the subset of *net.Resolver the Resolver needs.
type Lookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolver resolves host names to a single address of the requested
// family. It never returns an error; a false result is the failure signal
// and the cause is logged at debug level.
type Resolver struct {
	lookup  Lookup
	timeout time.Duration
	logger  logging.Logger
}

type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithServer sends every query to the DNS server at addr (host:port)
// instead of the system configuration.
func WithServer(addr string) Option {
	return func(r *Resolver) {
		if addr == "" {
			return
		}
		r.lookup = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}
}

// WithLookup replaces the underlying lookup.
func WithLookup(l Lookup) Option {
	return func(r *Resolver) { r.lookup = l }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		lookup:  net.DefaultResolver,
		timeout: DefaultTimeout,
		logger:  logging.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the first address of network ("ip4" or "ip6") that host
// resolves to. IP literals are returned without a lookup.
func (r *Resolver) Resolve(ctx context.Context, network, host string) (netip.Addr, bool) {
	if network != "ip4" && network != "ip6" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		return addr, matches(network, addr)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookup.LookupNetIP(ctx, network, host)
	if err != nil {
		r.logger.Debug(ctx, "lookup failed", "host", host, "network", network, "error", err)
		return netip.Addr{}, false
	}

	for _, a := range addrs {
		a = a.Unmap()
		if matches(network, a) {
			return a, true
		}
	}
	return netip.Addr{}, false
}

func matches(network string, a netip.Addr) bool {
	if network == "ip4" {
		return a.Is4()
	}
	return a.Is6()
}
