// pkg/certbot/certbot.go
//
// TLS certificate issuance through certbot's nginx integration. Issue is a
// single attempt; the calling step owns the retry budget, because DNS
// propagation delay is a property of the provisioning run, not of certbot.

package certbot

import (
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Issuer drives the certbot binary.
type Issuer struct {
	Runner execute.RunnerFunc
}

// New returns an Issuer that shells out to certbot.
func New() *Issuer {
	return &Issuer{Runner: execute.Run}
}

// Issue obtains a certificate for domain and rewrites the nginx site for
// HTTPS. Re-issuing for a domain that already has a valid certificate is a
// certbot-side no-op (--keep-until-expiring).
func (i *Issuer) Issue(rc *panel_io.RuntimeContext, domain, email string) error {
	otelzap.Ctx(rc.Ctx).Info("Requesting certificate",
		zap.String("domain", domain))
	_, err := i.Runner(rc.Ctx, execute.Options{
		Command: "certbot",
		Args: []string{
			"--nginx",
			"-d", domain,
			"-m", email,
			"--agree-tos",
			"--no-eff-email",
			"--non-interactive",
			"--keep-until-expiring",
			"--redirect",
		},
	})
	return err
}

// Delete removes the certificate lineage for domain.
func (i *Issuer) Delete(rc *panel_io.RuntimeContext, domain string) error {
	otelzap.Ctx(rc.Ctx).Info("Deleting certificate", zap.String("domain", domain))
	_, err := i.Runner(rc.Ctx, execute.Options{
		Command: "certbot",
		Args:    []string{"delete", "--cert-name", domain, "--non-interactive"},
	})
	return err
}
