package urlcheck

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// maxRedirectHops bounds redirect chains; anything longer is treated as a
// loop and rejected.
const maxRedirectHops = 5

// reservedNets lists address space that never identifies a legitimate public
// origin: "this network", shared CGNAT space, benchmarking, documentation,
// and class E ranges, plus the IPv6 documentation prefix. Private, loopback,
// link-local and unspecified addresses are matched via net.IP predicates.
var reservedNets []*net.IPNet

func init() {
	cidrs := []string{
		"0.0.0.0/8",
		"100.64.0.0/10",
		"192.0.0.0/24",
		"192.0.2.0/24",
		"198.18.0.0/15",
		"198.51.100.0/24",
		"203.0.113.0/24",
		"240.0.0.0/4",
		"2001:db8::/32",
	}
	for _, cidr := range cidrs {
		_, network, _ := net.ParseCIDR(cidr)
		reservedNets = append(reservedNets, network)
	}
}

// Checker validates untrusted URLs before the provider dereferences them.
// It is stateless per query and safe for concurrent reuse; construct one at
// startup and inject it wherever outbound URLs are handled.
type Checker struct {
	resolver         RecordResolver
	client           *http.Client
	allowNonPublicIP bool
}

// NewChecker builds a Checker around the given resolver. client issues the
// redirect-probing requests and must not follow redirects on its own; pass
// nil to use a suitable default. allowNonPublicIP downgrades non-public
// resolutions from a rejection to a warning.
func NewChecker(resolver RecordResolver, client *http.Client, allowNonPublicIP bool) *Checker {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Checker{
		resolver:         resolver,
		client:           client,
		allowNonPublicIP: allowNonPublicIP,
	}
}

// IsURL reports basic well-formedness: the string must parse with both a
// scheme and a host.
func IsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// isIPLiteral is the loose heuristic the file-descriptor format has always
// used: strip dots and check the remainder is all digits. It recognizes IPv4
// literals only; IPv6 literals fall through to regular record resolution.
func isIPLiteral(domain string) bool {
	stripped := strings.ReplaceAll(domain, ".", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsSafeDomain resolves the domain's A and AAAA records and reports whether
// every resolved address is public. A domain with no resolvable records
// passes vacuously. IPv4 literals are additionally validated directly.
func (c *Checker) IsSafeDomain(domain string) bool {
	ipv4Records := lookupRecords(c.resolver, domain, dns.TypeA)
	ipv6Records := lookupRecords(c.resolver, domain, dns.TypeAAAA)

	result := c.validateRecords(domain, ipv4Records, "A") &&
		c.validateRecords(domain, ipv6Records, "AAAA")

	if !isIPLiteral(domain) {
		return result
	}

	return result && c.validateRecord(domain, domain, "")
}

// validateRecords verifies that all records of one type resolve to public
// addresses. Absence of records passes.
func (c *Checker) validateRecords(domain string, records []string, recordType string) bool {
	for _, record := range records {
		if !c.validateRecord(record, domain, recordType) {
			return false
		}
	}
	return true
}

// validateRecord classifies a single record value. Anything that does not
// parse as an IP is rejected outright; non-public addresses are rejected
// unless the checker was configured to allow them.
func (c *Checker) validateRecord(value, domain, recordType string) bool {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil {
		zap.L().Info("record is not a valid IP address", zap.String("value", value))
		return false
	}

	if !isNonPublicIP(ip) {
		return true
	}

	if c.allowNonPublicIP {
		zap.L().Warn("DNS record resolves to a non public IP address, but allowed by config",
			zap.String("recordType", recordType),
			zap.String("domain", domain),
			zap.String("address", value))
		return true
	}

	zap.L().Error("DNS record resolves to a non public IP address",
		zap.String("recordType", recordType),
		zap.String("domain", domain),
		zap.String("address", value))
	return false
}

func isNonPublicIP(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, network := range reservedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ResolveFinalURL follows the redirect chain of rawURL with redirects
// disabled per hop and returns the terminal URL. HEAD is used first; origins
// answering 405 are retried with GET. The second return value is false when
// the URL is malformed, a hop fails, or the chain exceeds maxRedirectHops.
func (c *Checker) ResolveFinalURL(ctx context.Context, rawURL string) (string, bool) {
	current := rawURL

	for hop := 0; ; hop++ {
		if !IsURL(current) {
			return "", false
		}
		if hop > maxRedirectHops {
			zap.L().Info("Too many redirects for url. Aborting.",
				zap.String("url", rawURL),
				zap.Int("maxHops", maxRedirectHops))
			return "", false
		}

		resp, err := c.probe(ctx, current)
		if err != nil {
			zap.L().Info("redirect probe failed", zap.String("url", current), zap.Error(err))
			return "", false
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return current, true
		}

		next, ok := resolveLocation(current, location)
		if !ok {
			return "", false
		}
		zap.L().Info("Redirecting for url",
			zap.String("url", current),
			zap.String("location", next))
		current = next
	}
}

// probe performs a single redirect-disabled request against rawURL.
func (c *Checker) probe(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		// HEAD not allowed, so defaulting to GET.
		return c.do(ctx, http.MethodGet, rawURL)
	}
	return resp, nil
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	// Only headers matter here.
	resp.Body.Close()
	return resp, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveLocation resolves a Location header against the current URL. The
// base is given a trailing slash first so relative locations resolve under
// the current path rather than replacing its last segment.
func resolveLocation(current, location string) (string, bool) {
	base := current
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	next, err := baseURL.Parse(location)
	if err != nil {
		return "", false
	}
	return next.String(), true
}

// IsSafeURL reports whether rawURL may be dereferenced: its redirect chain
// must terminate within bounds and the hostname of the final URL must pass
// IsSafeDomain. Note the check applies to the returned URL's hostname, not
// to whatever the terminal response contained.
func (c *Checker) IsSafeURL(ctx context.Context, rawURL string) bool {
	final, ok := c.ResolveFinalURL(ctx, rawURL)
	if !ok {
		return false
	}

	u, err := url.Parse(final)
	if err != nil {
		return false
	}

	return c.IsSafeDomain(u.Hostname())
}
