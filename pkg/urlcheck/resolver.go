package urlcheck

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// RecordResolver answers DNS queries for a single record type. Lookup returns
// the textual record values (dotted quads for A, hex groups for AAAA).
// Implementations must be safe for concurrent use; each call is independent.
type RecordResolver interface {
	Lookup(domain string, qtype uint16) ([]string, error)
}

// RecordResolverFunc adapts a function to the RecordResolver interface.
type RecordResolverFunc func(domain string, qtype uint16) ([]string, error)

// Lookup calls f.
func (f RecordResolverFunc) Lookup(domain string, qtype uint16) ([]string, error) {
	return f(domain, qtype)
}

// dnsResolver is the production RecordResolver. It queries the system's
// configured nameservers directly so record-type errors stay distinguishable
// (the stub resolver API collapses A and AAAA failures into one).
type dnsResolver struct {
	client  *dns.Client
	servers []string
}

// NewDNSResolver builds a resolver from /etc/resolv.conf with the given
// per-query timeout. It fails when no nameserver configuration can be read.
func NewDNSResolver(timeout time.Duration) (RecordResolver, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("reading resolver config: %w", err)
	}

	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, fmt.Sprintf("%s:%s", s, conf.Port))
	}

	return &dnsResolver{
		client:  &dns.Client{Timeout: timeout},
		servers: servers,
	}, nil
}

func (r *dnsResolver) Lookup(domain string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.Exchange(msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("query for %s returned rcode %s", domain, dns.RcodeToString[in.Rcode])
			continue
		}

		var records []string
		for _, answer := range in.Answer {
			switch rr := answer.(type) {
			case *dns.A:
				records = append(records, rr.A.String())
			case *dns.AAAA:
				records = append(records, rr.AAAA.String())
			}
		}
		return records, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no nameservers configured")
	}
	return nil, lastErr
}

// lookupRecords fetches one record type, downgrading resolver failures to
// "no records of that type". NXDOMAIN, timeouts and transport errors all land
// here; whichever record types do resolve still get validated.
func lookupRecords(resolver RecordResolver, domain string, qtype uint16) []string {
	records, err := resolver.Lookup(domain, qtype)
	if err != nil {
		zap.L().Info("Cannot get record for domain",
			zap.String("recordType", dns.TypeToString[qtype]),
			zap.String("domain", domain),
			zap.Error(err))
		return nil
	}
	return records
}
