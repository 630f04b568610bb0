package dnsprovider

import (
	"context"
	"time"

	"github.com/miekg/dns"
)

// propagationProbe checks whether the delegated nameservers answer for the
// domain yet.
type propagationProbe interface {
	visible(ctx context.Context, domain string, nameservers []string) bool
}

type authoritativeProbe struct {
	client *dns.Client
}

func newAuthoritativeProbe() *authoritativeProbe {
	return &authoritativeProbe{client: &dns.Client{Timeout: 5 * time.Second}}
}

// visible queries each nameserver directly for the A and MX records of the
// apex. One nameserver answering both is enough; recursive resolvers lag
// behind the authoritative view and are not consulted.
func (p *authoritativeProbe) visible(ctx context.Context, domain string, nameservers []string) bool {
	fqdn := dns.Fqdn(domain)
	for _, ns := range nameservers {
		if p.answers(ctx, fqdn, dns.TypeA, ns) && p.answers(ctx, fqdn, dns.TypeMX, ns) {
			return true
		}
	}
	return false
}

func (p *authoritativeProbe) answers(ctx context.Context, fqdn string, qtype uint16, nameserver string) bool {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)
	r, _, err := p.client.ExchangeContext(ctx, m, nameserver+":53")
	if err != nil || r == nil {
		return false
	}
	return r.Rcode == dns.RcodeSuccess && len(r.Answer) > 0
}
