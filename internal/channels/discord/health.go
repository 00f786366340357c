package discord

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// fallbackResolvers is the fixed list tried, in order, after the OS resolver fails a DNS probe.
var fallbackResolvers = []string{"8.8.8.8", "1.1.1.1", "208.67.222.222", "9.9.9.9"}

// gatewayEndpoints is the fixed list of provider endpoints tried by the TCP probe, primary
// first. Success on the first short-circuits the rest.
var gatewayEndpoints = []string{
	"discord.com:443",
	"gateway.discord.gg:443",
	"discordapp.com:443",
}

// HealthChecker owns the rate-limited, cached network health probe described in spec §4.6.3.
type HealthChecker struct {
	Interval time.Duration
	Hostname string

	mu           sync.Mutex
	lastCheck    time.Time
	cached       bool
	tcpCallCount int

	status *Status
}

// NewHealthChecker builds a checker probing hostname (typically "discord.com"), caching results
// for interval (default 30s).
func NewHealthChecker(status *Status, hostname string, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if hostname == "" {
		hostname = "discord.com"
	}
	return &HealthChecker{status: status, Hostname: hostname, Interval: interval}
}

// Check returns the cached boolean if called within Interval of the last probe; otherwise it
// runs a fresh DNS+TCP probe and caches the result.
func (h *HealthChecker) Check(ctx context.Context) bool {
	h.mu.Lock()
	if time.Since(h.lastCheck) < h.Interval {
		ok := h.cached
		h.mu.Unlock()
		return ok
	}
	h.mu.Unlock()

	start := time.Now()
	ok := h.probeDNS(ctx) && h.probeTCP(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.lastCheck = time.Now()
	h.cached = ok
	h.mu.Unlock()

	if h.status != nil {
		h.status.RecordHealthCheck(ok, latency)
	}
	return ok
}

// probeDNS tries the OS resolver first, then each fallback resolver in turn, each bounded by a
// 5s per-query timeout inside an overall 10s budget. Records structured diagnostics for the
// first failure and for whichever fallback ultimately succeeded.
func (h *HealthChecker) probeDNS(ctx context.Context) bool {
	overall, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	osResolver := net.DefaultResolver
	if addrs, err := lookupWithTimeout(overall, osResolver, h.Hostname, 5*time.Second); err == nil && len(addrs) > 0 {
		return true
	} else if h.status != nil {
		h.status.RecordError(StateDNSFailure, ErrorInfo{Kind: "dns", Detail: errString(err), Server: "os"})
	}

	for _, server := range fallbackResolvers {
		resolver := dialingResolver(server)
		addrs, err := lookupWithTimeout(overall, resolver, h.Hostname, 5*time.Second)
		if err == nil && len(addrs) > 0 {
			if h.status != nil {
				h.status.RecordError(StateDNSFailure, ErrorInfo{Kind: "dns", Detail: "fallback resolver succeeded", Server: server})
			}
			return true
		}
		select {
		case <-overall.Done():
			return false
		default:
		}
	}
	return false
}

func lookupWithTimeout(ctx context.Context, r *net.Resolver, host string, timeout time.Duration) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.LookupHost(cctx, host)
}

// dialingResolver builds a *net.Resolver that queries the given DNS server directly, the
// standard way to pin a custom resolver without pulling in a dedicated DNS client library.
func dialingResolver(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{}
			return d.DialContext(ctx, "udp", net.JoinHostPort(server, "53"))
		},
	}
}

// probeTCP iterates gatewayEndpoints with a 5s connect timeout each, short-circuiting on the
// first success. Successes are logged only every 60th call to avoid noise.
func (h *HealthChecker) probeTCP(ctx context.Context) bool {
	for _, endpoint := range gatewayEndpoints {
		d := net.Dialer{Timeout: 5 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", endpoint)
		if err != nil {
			if h.status != nil {
				h.status.RecordError(StateNetworkFailure, ErrorInfo{Kind: "network", Detail: errString(err), Server: endpoint})
			}
			continue
		}
		conn.Close()

		h.mu.Lock()
		h.tcpCallCount++
		shouldLog := h.tcpCallCount%60 == 1
		h.mu.Unlock()
		if shouldLog {
			fmt.Printf("discord: tcp health probe ok via %s\n", endpoint)
		}
		return true
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
