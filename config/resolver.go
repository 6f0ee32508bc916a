package config

import (
	"context"
	"net"
	"sync"
)

// lookupCache memoizes successful results of one DNS lookup kind. Negative
// results are not cached: a lookup that failed once may well succeed later
// in the run, and the sentinel substitution happens above this layer.
type lookupCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

func newLookupCache[T any]() *lookupCache[T] {
	return &lookupCache[T]{entries: make(map[string]T)}
}

func cached[T any](c *lookupCache[T], key string, lookup func() (T, error)) (T, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := lookup()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()

	return v, nil
}

type srvResult struct {
	cname   string
	records []*net.SRV
}

// CustomResolver wraps a net.Resolver with per-kind result caching. It
// satisfies both the hostname-resolution lookup surface and the resolver
// interface the authentication library expects, so one instance (and one
// cache) serves LDAP dialing, Kerberos and computer resolution alike.
type CustomResolver struct {
	resolver *net.Resolver

	hosts   *lookupCache[[]string]
	addrs   *lookupCache[[]string]
	ips     *lookupCache[[]net.IP]
	ipAddrs *lookupCache[[]net.IPAddr]
	cnames  *lookupCache[string]
	mx      *lookupCache[[]*net.MX]
	ns      *lookupCache[[]*net.NS]
	ports   *lookupCache[int]
	srv     *lookupCache[srvResult]
	txt     *lookupCache[[]string]
}

// NewCustomResolver wraps the given resolver with caching. A nil resolver
// means the system default.
func NewCustomResolver(resolver *net.Resolver) *CustomResolver {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	return &CustomResolver{
		resolver: resolver,
		hosts:    newLookupCache[[]string](),
		addrs:    newLookupCache[[]string](),
		ips:      newLookupCache[[]net.IP](),
		ipAddrs:  newLookupCache[[]net.IPAddr](),
		cnames:   newLookupCache[string](),
		mx:       newLookupCache[[]*net.MX](),
		ns:       newLookupCache[[]*net.NS](),
		ports:    newLookupCache[int](),
		srv:      newLookupCache[srvResult](),
		txt:      newLookupCache[[]string](),
	}
}

func (cr *CustomResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return cached(cr.hosts, host, func() ([]string, error) {
		return cr.resolver.LookupHost(ctx, host)
	})
}

func (cr *CustomResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return cached(cr.addrs, addr, func() ([]string, error) {
		return cr.resolver.LookupAddr(ctx, addr)
	})
}

func (cr *CustomResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	return cached(cr.ips, network+":"+host, func() ([]net.IP, error) {
		return cr.resolver.LookupIP(ctx, network, host)
	})
}

func (cr *CustomResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return cached(cr.ipAddrs, host, func() ([]net.IPAddr, error) {
		return cr.resolver.LookupIPAddr(ctx, host)
	})
}

func (cr *CustomResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	return cached(cr.cnames, host, func() (string, error) {
		return cr.resolver.LookupCNAME(ctx, host)
	})
}

func (cr *CustomResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return cached(cr.mx, name, func() ([]*net.MX, error) {
		return cr.resolver.LookupMX(ctx, name)
	})
}

func (cr *CustomResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	return cached(cr.ns, name, func() ([]*net.NS, error) {
		return cr.resolver.LookupNS(ctx, name)
	})
}

func (cr *CustomResolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	return cached(cr.ports, network+":"+service, func() (int, error) {
		return cr.resolver.LookupPort(ctx, network, service)
	})
}

func (cr *CustomResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	res, err := cached(cr.srv, service+":"+proto+":"+name, func() (srvResult, error) {
		cname, records, err := cr.resolver.LookupSRV(ctx, service, proto, name)
		return srvResult{cname: cname, records: records}, err
	})
	return res.cname, res.records, err
}

func (cr *CustomResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return cached(cr.txt, name, func() ([]string, error) {
		return cr.resolver.LookupTXT(ctx, name)
	})
}
