package oidc

// Package oidc provides the OpenID Connect authorization-code adapter used by
// every portal's OIDC scheme.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/ports"
)

const wellKnownSuffix = "/.well-known/openid-configuration"

// ProviderConfig holds configuration for one portal's OIDC provider.
type ProviderConfig struct {
	// Issuer is an authority URL or a full metadata address ending in
	// /.well-known/openid-configuration.
	Issuer       string
	ClientID     string
	ClientSecret string
	// Scopes are sent verbatim; an empty list sends no scope parameter.
	Scopes     []string
	HTTPClient *http.Client // Optional, defaults to a 30s client
	Logger     *slog.Logger // Optional
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint"`
	JwksURI               string   `json:"jwks_uri"`
	EndSessionEndpoint    string   `json:"end_session_endpoint,omitempty"`
	SigningAlgs           []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// discovered is the provider state resolved on first use.
type discovered struct {
	provider    *gooidc.Provider
	verifier    *gooidc.IDTokenVerifier
	oauth       oauth2.Config
	userInfoURL string
}

// Provider implements ports.AuthProvider. Discovery is deferred until the
// first Begin or Exchange and shared between concurrent callers; failures
// are not cached.
type Provider struct {
	cfg        ProviderConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	state *discovered
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider validates cfg without contacting the issuer.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, apperrors.Configurationf("oidc: client id is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, apperrors.Configurationf("oidc: issuer is required")
	}
	if _, err := url.ParseRequestURI(cfg.Issuer); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "oidc: invalid issuer")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With("component", "oidc", "issuer", cfg.Issuer),
		now:        time.Now,
	}, nil
}

// IsMetadataAddress reports whether issuer points straight at a discovery document.
func IsMetadataAddress(issuer string) bool {
	return strings.Contains(issuer, wellKnownSuffix)
}

// RequireHTTPSMetadata reports whether discovered endpoints must use https.
func RequireHTTPSMetadata(issuer string) bool {
	return strings.HasPrefix(strings.ToLower(issuer), "https://")
}

func (p *Provider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error) {
	if in.RedirectURI == "" {
		return ports.BeginResult{}, errors.New("redirect URI is required")
	}
	d, err := p.discover(ctx)
	if err != nil {
		return ports.BeginResult{}, err
	}

	state, err := generateRandomString(32)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	cfg := d.oauth
	cfg.RedirectURL = in.RedirectURI
	authURL := cfg.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)

	return ports.BeginResult{AuthURL: authURL, State: state, Nonce: nonce, Verifier: verifier}, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Assertion, error) {
	if in.Code == "" {
		return domainauth.Assertion{}, remoteErr(errors.New("authorization code is required"), "exchange")
	}
	if in.Nonce == "" {
		return domainauth.Assertion{}, remoteErr(errors.New("nonce is required"), "exchange")
	}
	d, err := p.discover(ctx)
	if err != nil {
		return domainauth.Assertion{}, err
	}

	cfg := d.oauth
	cfg.RedirectURL = in.RedirectURI
	ctx = gooidc.ClientContext(ctx, p.httpClient)

	var opts []oauth2.AuthCodeOption
	if in.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(in.Verifier))
	}
	token, err := cfg.Exchange(ctx, in.Code, opts...)
	if err != nil {
		return domainauth.Assertion{}, remoteErr(err, "exchange code for token")
	}

	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.Assertion{}, remoteErr(err, "token response")
	}
	idTok, err := d.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Assertion{}, remoteErr(err, "verify id_token")
	}
	if idTok.Nonce != in.Nonce {
		return domainauth.Assertion{}, remoteErr(errors.New("nonce mismatch"), "verify id_token")
	}

	claims := map[string]any{}
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.Assertion{}, remoteErr(err, "parse id_token claims")
	}

	if d.userInfoURL != "" && token.AccessToken != "" {
		if err := p.mergeUserInfo(ctx, d, token, claims); err != nil {
			return domainauth.Assertion{}, remoteErr(err, "user info")
		}
	}

	return domainauth.Assertion{
		Issuer:          idTok.Issuer,
		Claims:          claims,
		AuthenticatedAt: authTime(claims, p.now()),
	}, nil
}

// mergeUserInfo adds user-info claims that the ID token did not carry.
func (p *Provider) mergeUserInfo(ctx context.Context, d *discovered, tok *oauth2.Token, claims map[string]any) error {
	ui, err := d.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	if sub, _ := claims["sub"].(string); sub != "" && ui.Subject != sub {
		return errors.New("user info subject does not match id_token")
	}
	extra := map[string]any{}
	if err := ui.Claims(&extra); err != nil {
		return fmt.Errorf("decode user info: %w", err)
	}
	for k, v := range extra {
		if _, ok := claims[k]; !ok {
			claims[k] = v
		}
	}
	return nil
}

// discover resolves provider metadata once. Concurrent callers share one
// in-flight fetch; a failed fetch is retried by the next caller.
func (p *Provider) discover(ctx context.Context) (*discovered, error) {
	p.mu.RLock()
	d := p.state
	p.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	v, err, _ := p.group.Do("discover", func() (any, error) {
		p.mu.RLock()
		existing := p.state
		p.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// Keys are fetched lazily with this context, so it must outlive the request.
		dctx := gooidc.ClientContext(context.WithoutCancel(ctx), p.httpClient)
		resolved, err := p.resolve(dctx)
		if err != nil {
			p.logger.WarnContext(ctx, "oidc discovery failed", "error", err)
			return nil, err
		}

		p.mu.Lock()
		p.state = resolved
		p.mu.Unlock()
		p.logger.InfoContext(ctx, "oidc discovery completed")
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*discovered), nil
}

func (p *Provider) resolve(ctx context.Context) (*discovered, error) {
	var (
		op  *gooidc.Provider
		doc DiscoveryDocument
		err error
	)

	if IsMetadataAddress(p.cfg.Issuer) {
		doc, err = p.fetchDocument(ctx, p.cfg.Issuer)
		if err != nil {
			return nil, remoteErr(err, "fetch discovery document")
		}
		op = (&gooidc.ProviderConfig{
			IssuerURL:   doc.Issuer,
			AuthURL:     doc.AuthorizationEndpoint,
			TokenURL:    doc.TokenEndpoint,
			UserInfoURL: doc.UserinfoEndpoint,
			JWKSURL:     doc.JwksURI,
			Algorithms:  doc.SigningAlgs,
		}).NewProvider(ctx)
	} else {
		op, err = gooidc.NewProvider(ctx, p.cfg.Issuer)
		if err != nil {
			return nil, remoteErr(err, "oidc discovery")
		}
		if err := op.Claims(&doc); err != nil {
			return nil, remoteErr(err, "decode discovery claims")
		}
	}

	if RequireHTTPSMetadata(p.cfg.Issuer) {
		if err := requireHTTPS(doc); err != nil {
			return nil, err
		}
	}

	return &discovered{
		provider: op,
		verifier: op.Verifier(&gooidc.Config{ClientID: p.cfg.ClientID, Now: p.now}),
		oauth: oauth2.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			Endpoint:     op.Endpoint(),
			Scopes:       append([]string(nil), p.cfg.Scopes...),
		},
		userInfoURL: op.UserInfoEndpoint(),
	}, nil
}

func (p *Provider) fetchDocument(ctx context.Context, address string) (DiscoveryDocument, error) {
	var doc DiscoveryDocument
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return doc, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return doc, err
	}
	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return doc, fmt.Errorf("decode: %w", err)
	}
	if doc.Issuer == "" || doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.JwksURI == "" {
		return doc, errors.New("discovery document is missing required endpoints")
	}
	return doc, nil
}

func requireHTTPS(doc DiscoveryDocument) error {
	endpoints := map[string]string{
		"authorization_endpoint": doc.AuthorizationEndpoint,
		"token_endpoint":         doc.TokenEndpoint,
		"jwks_uri":               doc.JwksURI,
		"userinfo_endpoint":      doc.UserinfoEndpoint,
	}
	for name, raw := range endpoints {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || !strings.EqualFold(u.Scheme, "https") {
			return apperrors.Configurationf("oidc: %s must use https, got %q", name, raw)
		}
	}
	return nil
}

// authTime returns the auth_time claim, or fallback when absent.
func authTime(claims map[string]any, fallback time.Time) time.Time {
	switch v := claims["auth_time"].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0).UTC()
		}
	}
	return fallback.UTC()
}

func remoteErr(err error, msg string) error {
	return apperrors.Wrap(err, apperrors.ErrCodeRemoteProvider, msg)
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
