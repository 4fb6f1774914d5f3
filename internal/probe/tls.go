package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
)

const certDateLayout = "Jan 02, 2006"

// TLSProbe connects to the target host and inspects its certificate chain.
// A refused connection or missing TLS is a Failed slot, not an error to the
// caller: absence of TLS is itself a risk signal downstream.
type TLSProbe struct {
	cfg    Config
	logger logging.Logger
	dialer *net.Dialer
}

// NewTLSProbe builds the TLS probe.
func NewTLSProbe(cfg Config, logger logging.Logger) *TLSProbe {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TLSProbe{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe-tls"}),
		dialer: &net.Dialer{},
	}
}

func (p *TLSProbe) Kind() model.ProbeKind { return model.KindTLS }

// Run performs the handshake with verification disabled, then validates the
// chain itself so an invalid certificate is still fully described.
func (p *TLSProbe) Run(ctx context.Context, target *model.Target) (model.Payload, error) {
	addr := net.JoinHostPort(target.Host, target.Port("443"))

	netConn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer netConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	conn := tls.Client(netConn, &tls.Config{
		ServerName: target.Host,
		// Verification happens below so invalid certs still yield details.
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificates presented")
	}
	leaf := certs[0]

	now := time.Now()
	expired := now.Before(leaf.NotBefore) || now.After(leaf.NotAfter)
	hostnameOK := leaf.VerifyHostname(target.Host) == nil

	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	_, chainErr := leaf.Verify(x509.VerifyOptions{
		DNSName:       target.Host,
		Intermediates: intermediates,
		CurrentTime:   now,
	})

	issuer := leaf.Issuer.CommonName
	if len(leaf.Issuer.Organization) > 0 {
		issuer = leaf.Issuer.Organization[0]
	}
	if issuer == "" {
		issuer = "Unknown"
	}

	details := &model.TLSDetails{
		Issuer:   issuer,
		IssuedOn: leaf.NotBefore.Format(certDateLayout),
		Expires:  leaf.NotAfter.Format(certDateLayout),
		DaysLeft: int(leaf.NotAfter.Sub(now).Hours() / 24),
		Valid:    !expired && hostnameOK && chainErr == nil,
	}

	if !details.Valid {
		p.logger.Debug("certificate not valid",
			logging.Field{Key: "host", Value: target.Host},
			logging.Field{Key: "expired", Value: expired},
			logging.Field{Key: "hostname_ok", Value: hostnameOK},
			logging.Field{Key: "chain_ok", Value: chainErr == nil})
	}

	return details, nil
}
