package ldap

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Sentinel values written into the synthetic IPv4 attribute when a lookup
// cannot produce an address. They sort together in reports and are trivially
// greppable, which is the whole point.
const (
	SentinelNXDomain   = "error.NXDOMAIN"
	SentinelTimeout    = "error.TIMEOUT"
	SentinelNoHostname = "error.NOHOSTNAME"
)

const (
	DefaultResolveWorkers = 8
	lookupTimeout         = 2 * time.Second
)

// Resolver is the lookup surface needed for hostname resolution. It is
// satisfied by *net.Resolver and by the caching resolver in the config
// package.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ResolveComputers resolves the dNSHostName of each computer account to an
// IPv4 address and stores the result as a synthetic IPv4 attribute on the
// entry. Lookups run on a bounded worker pool; each worker owns a disjoint
// set of entries, so no locking is needed on the entries themselves. A failed
// lookup never fails the run: the sentinel takes the address slot and the
// report shows it as-is.
func ResolveComputers(ctx context.Context, resolver Resolver, computers []*Entry, workers int) {
	if workers <= 0 {
		workers = DefaultResolveWorkers
	}

	jobs := make(chan *Entry)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				entry.Set("IPv4", resolveOne(ctx, resolver, entry))
			}
		}()
	}

	for _, entry := range computers {
		jobs <- entry
	}
	close(jobs)

	wg.Wait()
}

func resolveOne(ctx context.Context, resolver Resolver, entry *Entry) string {
	hostname, ok := entry.Value("dNSHostName")
	if !ok || hostname == "" {
		return SentinelNoHostname
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	ips, err := resolver.LookupIP(lookupCtx, "ip4", hostname)
	if err != nil {
		return classifyLookupError(err)
	}

	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}

	return SentinelNXDomain
}

func classifyLookupError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return SentinelTimeout
		}
		return SentinelNXDomain
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return SentinelTimeout
	}

	return SentinelNXDomain
}

// Resolved reports whether the entry carries a real resolved address rather
// than a lookup sentinel.
func Resolved(entry *Entry) bool {
	ip, ok := entry.Value("IPv4")
	return ok && ip != "" && !strings.HasPrefix(ip, "error.")
}

// PingComputers sends one ICMP echo to every computer with a resolved address
// and records the outcome as a synthetic alive attribute ("true"/"false").
// Entries whose resolution failed are skipped; they keep no alive attribute
// at all, the same way an unresolved host keeps no IPv4 attribute without -r.
func PingComputers(ctx context.Context, computers []*Entry, workers int) {
	if workers <= 0 {
		workers = DefaultResolveWorkers
	}

	jobs := make(chan *Entry)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				ip, _ := entry.Value("IPv4")
				if pingOne(ctx, ip) {
					entry.Set("alive", "true")
				} else {
					entry.Set("alive", "false")
				}
			}
		}()
	}

	for _, entry := range computers {
		if !Resolved(entry) {
			continue
		}
		jobs <- entry
	}
	close(jobs)

	wg.Wait()
}

func pingOne(ctx context.Context, addr string) bool {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false
	}

	pinger.Count = 1
	pinger.Timeout = lookupTimeout
	pinger.SetPrivileged(true)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false
	}

	return pinger.Statistics().PacketsRecv > 0
}
