// Package printing builds IPP print jobs for authenticated callers and sends
// them to the configured printers.
package printing

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/coulterac/kprint/internal/ipp"
)

// ErrNotFound is returned when a printer name is not configured.
var ErrNotFound = errors.New("printer not found")

// Backend is a configured printer.
type Backend struct {
	Name   string
	client *ipp.Client
}

// URI returns the printer URI sent as "printer-uri".
func (b *Backend) URI() string { return b.client.URI() }

// Registry is the fixed set of printers the gateway serves. It is read-only
// once built.
type Registry struct {
	backends map[string]*Backend
}

type registryOptions struct {
	proxyToken string
	hc         *http.Client
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

// WithProxyToken sends token as the Authorization header on every request
// to the print server.
func WithProxyToken(token string) RegistryOption {
	return func(o *registryOptions) { o.proxyToken = token }
}

// WithBackendClient sets the HTTP client used to reach the print server.
func WithBackendClient(hc *http.Client) RegistryOption {
	return func(o *registryOptions) { o.hc = hc }
}

// NewRegistry builds one backend per name at {baseURL}/printers/{name}.
func NewRegistry(baseURL string, names []string, l log.Logger, opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{hc: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if l == nil {
		l = log.NewNopLogger()
	}

	if o.proxyToken == "" {
		l.Log("level", "warn", "msg", "no print server proxy token was provided, is your print server secure?")
	}

	base := strings.TrimRight(baseURL, "/")
	r := &Registry{backends: make(map[string]*Backend, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := r.backends[name]; ok {
			return nil, errors.Errorf("printer %q configured twice", name)
		}

		clientOpts := []ipp.Option{ipp.WithHTTPClient(o.hc)}
		if o.proxyToken != "" {
			clientOpts = append(clientOpts, ipp.WithHeader("Authorization", o.proxyToken))
		}
		c, err := ipp.NewClient(base+"/printers/"+name, clientOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "printer %q", name)
		}
		r.backends[name] = &Backend{Name: name, client: c}
	}

	if len(r.backends) == 0 {
		return nil, errors.New("no printers configured")
	}
	return r, nil
}

// Resolve returns the backend called name.
func (r *Registry) Resolve(name string) (*Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "printer named %s doesn't exist", name)
	}
	return b, nil
}

// Names lists the configured printers in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
