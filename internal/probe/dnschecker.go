package probe

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// DNSDiagnoser wraps a Checker and annotates connection failures with the
// DNS class of the target host, so "down" can be told apart from "gone".
type DNSDiagnoser struct {
	Next     Checker
	Resolver Resolver
	Logger   *zap.Logger
}

func NewDNSDiagnoser(next Checker, r Resolver, log *zap.Logger) *DNSDiagnoser {
	if log == nil {
		log = zap.NewNop()
	}
	return &DNSDiagnoser{Next: next, Resolver: r, Logger: log}
}

func (d *DNSDiagnoser) Check(ctx context.Context, target string) CheckResult {
	res := d.Next.Check(ctx, target)
	if res.Class != domain.ProbeConnectionError {
		return res
	}

	dns := CheckDNS(ctx, d.Resolver, extractHost(target))
	d.Logger.Info("dns_check",
		zap.String("target_id", target),
		zap.String("domain", dns.Domain),
		zap.String("class", dns.Class),
		zap.Bool("has_a_or_aaaa", dns.HasAOrAAAA),
		zap.Strings("nameservers", dns.Nameservers),
		zap.String("resolver_error", dns.ResolverError),
	)
	res.Message = fmt.Sprintf("%s dns=%s", res.Message, dns.Class)
	return res
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
