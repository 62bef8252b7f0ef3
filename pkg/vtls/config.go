// Package vtls builds *tls.Config values for the CRYPTO endpoint
// extension (spec §6 "Endpoint extensions"). It is kept out of
// pkg/vpphttp entirely so the protocol engine stays transport-upgrade
// blind, matching the spec's framing of HTTP as layered strictly above
// whatever transport identity the host chose.
//
// The builder-with-fluent-setters shape and the QuickTLS/ManualTLS/
// SecureDefaults helpers are carried over from the teacher's own
// tls.Config (pkg/shockwave/tls/config.go); the certificate-management
// backend underneath is swapped for golang.org/x/crypto/acme/autocert
// rather than the teacher's hand-rolled RFC 8555 client, since autocert
// already gives a Go module depending on x/crypto everything the ACME
// HTTP-01 path needs without reimplementing the protocol.
package vtls

import (
	"crypto/tls"
	"errors"
)

// Config mirrors the teacher's TLS configuration builder, trimmed to
// the options this package's autocert-backed and manual-cert backends
// actually honor.
type Config struct {
	AutoCert bool
	Email    string
	Domains  []string
	CertDir  string
	Staging  bool

	CertFile string
	KeyFile  string

	MinVersion   uint16
	MaxVersion   uint16
	CipherSuites []uint16
	ClientAuth   tls.ClientAuthType
	NextProtos   []string

	manager *autocertManager
}

var defaultCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// NewConfig returns a Config with the teacher's secure defaults: TLS
// 1.2 floor, TLS 1.3 ceiling, PFS-only cipher suites.
func NewConfig() *Config {
	return &Config{
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CipherSuites: defaultCipherSuites,
		NextProtos:   []string{"http/1.1"},
	}
}

func (c *Config) WithAutoCert(email string, domains ...string) *Config {
	c.AutoCert = true
	c.Email = email
	c.Domains = domains
	return c
}

func (c *Config) WithStaging() *Config {
	c.Staging = true
	return c
}

func (c *Config) WithCertDir(dir string) *Config {
	c.CertDir = dir
	return c
}

func (c *Config) WithManualCert(certFile, keyFile string) *Config {
	c.AutoCert = false
	c.CertFile = certFile
	c.KeyFile = keyFile
	return c
}

func (c *Config) WithMinTLSVersion(v uint16) *Config {
	c.MinVersion = v
	return c
}

func (c *Config) WithClientAuth(t tls.ClientAuthType) *Config {
	c.ClientAuth = t
	return c
}

// Build produces a *tls.Config, starting either the autocert manager or
// loading a static key pair depending on c.AutoCert.
func (c *Config) Build() (*tls.Config, error) {
	if c.AutoCert {
		return c.buildAutoCert()
	}
	return c.buildManualCert()
}

func (c *Config) buildAutoCert() (*tls.Config, error) {
	if c.Email == "" {
		return nil, errors.New("vtls: email is required for automatic certificates")
	}
	if len(c.Domains) == 0 {
		return nil, errors.New("vtls: at least one domain is required for automatic certificates")
	}

	mgr, err := newAutocertManager(c.Email, c.Domains, c.CertDir, c.Staging)
	if err != nil {
		return nil, err
	}
	c.manager = mgr

	tlsCfg := mgr.TLSConfig()
	tlsCfg.MinVersion = c.MinVersion
	tlsCfg.MaxVersion = c.MaxVersion
	tlsCfg.CipherSuites = c.CipherSuites
	tlsCfg.ClientAuth = c.ClientAuth
	if len(c.NextProtos) > 0 {
		tlsCfg.NextProtos = appendMissing(tlsCfg.NextProtos, c.NextProtos)
	}
	return tlsCfg, nil
}

func (c *Config) buildManualCert() (*tls.Config, error) {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, errors.New("vtls: certificate and key files are required")
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   c.MinVersion,
		MaxVersion:   c.MaxVersion,
		CipherSuites: c.CipherSuites,
		ClientAuth:   c.ClientAuth,
		NextProtos:   c.NextProtos,
	}, nil
}

func appendMissing(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, p := range base {
		seen[p] = true
	}
	out := append([]string(nil), base...)
	for _, p := range add {
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}

// QuickTLS is the one-call path to an autocert-backed *tls.Config.
func QuickTLS(email string, domains ...string) (*tls.Config, error) {
	return NewConfig().WithAutoCert(email, domains...).Build()
}

// ManualTLS loads a static certificate/key pair.
func ManualTLS(certFile, keyFile string) (*tls.Config, error) {
	return NewConfig().WithManualCert(certFile, keyFile).Build()
}

// SecureDefaults returns a Config with no certificate source configured
// yet, for a caller that wants the cipher/version defaults and will
// attach AutoCert or ManualCert itself.
func SecureDefaults() *Config {
	return NewConfig()
}
