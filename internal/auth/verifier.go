// Package auth verifies OIDC identity tokens presented as bearer tokens and
// gates HTTP handlers on them.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// AccountAudience is the generic audience the provider puts on tokens that
// were not minted for a specific client. Tokens carrying it are accepted
// alongside tokens for the configured client id.
const AccountAudience = "account"

// DefaultDiscoveryTimeout bounds provider discovery when Config leaves it
// unset.
const DefaultDiscoveryTimeout = 10 * time.Second

var (
	// ErrUnauthorized is returned when a token fails verification.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBootstrap is returned when the provider client could not be built.
	ErrBootstrap = errors.New("oidc provider bootstrap failed")
)

// Config describes the identity provider and this service's client.
type Config struct {
	Issuer   string
	ClientID string

	// HTTPClient is used for discovery and key fetches. If one isn't
	// provided a client with DiscoveryTimeout is used.
	HTTPClient       *http.Client
	DiscoveryTimeout time.Duration
}

// Verifier turns bearer tokens into identities. The provider client is
// discovered on first use and shared by every request afterwards. All
// methods are safe for concurrent use.
type Verifier struct {
	cfg Config
	hc  *http.Client
	l   log.Logger

	group singleflight.Group
	mu    sync.RWMutex
	idv   *oidc.IDTokenVerifier
}

// NewVerifier returns a Verifier for cfg. No network calls are made until
// the first token is verified.
func NewVerifier(cfg Config, l log.Logger) *Verifier {
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.DiscoveryTimeout}
	}
	if l == nil {
		l = log.NewNopLogger()
	}
	return &Verifier{cfg: cfg, hc: hc, l: l}
}

func (v *Verifier) client() *oidc.IDTokenVerifier {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.idv
}

// EnsureClient returns the provider client, discovering it if needed.
//
// Callers arriving while a discovery is in flight wait for it and share its
// result. A successful client is kept for the life of the process; a failed
// discovery is not remembered, so a later call tries again.
func (v *Verifier) EnsureClient(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	if idv := v.client(); idv != nil {
		return idv, nil
	}

	ch := v.group.DoChan("provider", func() (interface{}, error) {
		// A flight that finished between the check above and joining the
		// group has already stored the client.
		if idv := v.client(); idv != nil {
			return idv, nil
		}

		v.l.Log("level", "info", "msg", "discovering oidc provider", "issuer", v.cfg.Issuer)
		idv, err := v.discover()
		if err != nil {
			v.l.Log("level", "error", "msg", "could not discover oidc provider", "issuer", v.cfg.Issuer, "err", err.Error())
			return nil, err
		}

		v.mu.Lock()
		v.idv = idv
		v.mu.Unlock()
		return idv, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, errors.Wrap(ErrBootstrap, res.Err.Error())
		}
		return res.Val.(*oidc.IDTokenVerifier), nil
	case <-ctx.Done():
		return nil, errors.Wrap(ErrBootstrap, ctx.Err().Error())
	}
}

func (v *Verifier) discover() (*oidc.IDTokenVerifier, error) {
	// The provider keeps using this context to refresh signing keys, so it
	// must outlive the request that triggered discovery. The HTTP client's
	// timeout bounds each call instead.
	ctx := oidc.ClientContext(context.Background(), v.hc)

	provider, err := oidc.NewProvider(ctx, v.cfg.Issuer)
	if err != nil {
		return nil, err
	}

	// The audience is checked in Verify, where the account audience is also
	// allowed.
	return provider.Verifier(&oidc.Config{
		ClientID:          v.cfg.ClientID,
		SkipClientIDCheck: true,
	}), nil
}

type claims struct {
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
	UUID              string   `json:"uuid"`
}

// Verify checks the token's signature, issuer, expiry and audience and
// returns the identity it asserts. Errors wrap ErrUnauthorized, or
// ErrBootstrap when the provider could not be reached.
// The nonce claim is not checked: tokens are presented directly, so this
// service never issued a nonce.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	idv, err := v.EnsureClient(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := idv.Verify(ctx, raw)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	if !containsAny(tok.Audience, v.cfg.ClientID, AccountAudience) {
		return nil, errors.Wrapf(ErrUnauthorized, "bad token: audience %v has neither %q nor %q", tok.Audience, v.cfg.ClientID, AccountAudience)
	}

	var c claims
	if err := tok.Claims(&c); err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	if c.PreferredUsername == "" {
		return nil, errors.Wrap(ErrUnauthorized, "bad token: missing preferred_username")
	}

	id := &Identity{
		Subject:  tok.Subject,
		Username: c.PreferredUsername,
		Groups:   c.Groups,
	}
	if c.UUID != "" {
		u, err := uuid.Parse(c.UUID)
		if err != nil {
			return nil, errors.Wrap(ErrUnauthorized, "bad token: invalid uuid claim")
		}
		id.UUID = u
	}

	return id, nil
}

func containsAny(haystack []string, needles ...string) bool {
	for _, hay := range haystack {
		for _, needle := range needles {
			if needle != "" && hay == needle {
				return true
			}
		}
	}
	return false
}
