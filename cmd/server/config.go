package main

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type config struct {
	Addr         string        `default:":8080" required:"true" split_words:"true"`
	MetricsAddr  string        `default:":5000" required:"true" split_words:"true"`
	ReadTimeout  time.Duration `default:"5m" required:"true" split_words:"true"`
	WriteTimeout time.Duration `default:"5m" required:"true" split_words:"true"`

	Printers       printerList `required:"true"`
	CupsURL        string      `required:"true" envconfig:"CUPS_URL"`
	CupsProxyToken string      `split_words:"true"`
	PublicScheme   string      `default:"https" split_words:"true"`
	ChunkSize      int         `default:"32768" split_words:"true"`

	OIDCIssuer           string        `default:"https://sso.csh.rit.edu/auth/realms/csh" envconfig:"OIDC_ISSUER"`
	OIDCClientID         string        `default:"kprint" envconfig:"OIDC_CLIENT_ID"`
	OIDCDiscoveryTimeout time.Duration `default:"10s" envconfig:"OIDC_DISCOVERY_TIMEOUT"`

	AllowedOrigins []string `default:"http://localhost:8081" split_words:"true"`

	NewRelicEnabled bool   `default:"false" split_words:"true"`
	NewRelicAppName string `default:"kprint" split_words:"true"`
	NewRelicLicense string `split_words:"true"`
}

// printerList is a space separated list of printer names.
type printerList []string

// Decode implements envconfig.Decoder.
func (p *printerList) Decode(value string) error {
	*p = strings.Fields(value)
	return nil
}

func loadConfig() (config, error) {
	var c config
	err := envconfig.Process("KPRINT", &c)
	return c, err
}
