// Package resolver performs forward-confirmed reverse lookups of client
// addresses.
package resolver

import (
	"context"
	"net"
	"strings"
	"time"

	"icbd/config"
)

// Lookuper is the subset of *net.Resolver used here.
type Lookuper interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Resolver maps peer addresses to host names.
type Resolver struct {
	Lookup  Lookuper
	Timeout time.Duration
}

// New returns a Resolver backed by net.DefaultResolver.
func New() *Resolver {
	return &Resolver{Lookup: net.DefaultResolver, Timeout: config.DefaultResolveTimeout}
}

// Reverse returns the first PTR name of ip whose forward lookup
// includes ip again.  ok is false when no such name exists.
func (r *Resolver) Reverse(ctx context.Context, ip string) (name string, ok bool) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", false
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	names, err := r.Lookup.LookupAddr(ctx, ip)
	if err != nil {
		return "", false
	}
	for _, n := range names {
		n = strings.TrimSuffix(n, ".")
		if n == "" {
			continue
		}
		ips, err := r.Lookup.LookupIPAddr(ctx, n)
		if err != nil {
			continue
		}
		for _, fwd := range ips {
			if fwd.IP.Equal(addr) {
				return n, true
			}
		}
	}
	return "", false
}
