package portal

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/secrets"
)

var portalKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type document struct {
	Auth authSection `yaml:"auth"`
}

type authSection struct {
	SessionSecret         string                 `yaml:"session_secret"`
	SessionTimeoutMinutes int                    `yaml:"session_timeout_minutes" validate:"gte=0"`
	Portals               map[string]portalEntry `yaml:"portals"                 validate:"dive,keys,portalkey,endkeys"`
}

type portalEntry struct {
	Name         string     `yaml:"name"`
	Display      string     `yaml:"display"`
	Hostname     string     `yaml:"hostname"      validate:"omitempty,hostname_port|hostname_rfc1123"`
	CookieDomain string     `yaml:"cookie_domain"`
	OIDC         *oidcEntry `yaml:"oidc"`
}

type oidcEntry struct {
	Issuer       string    `yaml:"issuer"       validate:"omitempty,url"`
	ClientID     string    `yaml:"client_id"`
	ClientSecret string    `yaml:"client_secret"`
	Scopes       *[]string `yaml:"scopes"`
	RolesClaim   string    `yaml:"roles_claim"`
}

// Decrypter recovers plaintext from possibly-encrypted scalars.
type Decrypter interface {
	DecryptValue(s string) (secrets.Value, error)
}

// Load reads the portal document at path.
func Load(path string, codec Decrypter) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeConfiguration, "read portal document %s", path)
	}
	return Parse(data, codec)
}

// Parse decodes, validates and decrypts a portal document. A secret that no
// configured key can decrypt fails the whole load.
func Parse(data []byte, codec Decrypter) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "parse portal document")
	}

	if err := newValidator().Struct(doc); err != nil {
		return nil, translateValidation(err)
	}

	sessionSecret, err := codec.DecryptValue(doc.Auth.SessionSecret)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDecryptionFailed, "decrypt session_secret")
	}

	portals := make([]Config, 0, len(doc.Auth.Portals))
	for key, entry := range doc.Auth.Portals {
		p, err := buildPortal(key, entry, codec)
		if err != nil {
			return nil, err
		}
		portals = append(portals, p)
	}

	return NewRegistry(Settings{
		SessionSecret:  sessionSecret,
		SessionTimeout: time.Duration(doc.Auth.SessionTimeoutMinutes) * time.Minute,
	}, portals...), nil
}

func buildPortal(key string, e portalEntry, codec Decrypter) (Config, error) {
	p := Config{
		Name:         key,
		Display:      strings.TrimSpace(e.Display),
		Hostname:     strings.ToLower(strings.TrimSpace(e.Hostname)),
		CookieDomain: strings.ToLower(strings.TrimSpace(e.CookieDomain)),
	}
	if p.Display == "" {
		p.Display = key
	}
	if err := validateCookieDomain(p.CookieDomain, p.Hostname); err != nil {
		return Config{}, apperrors.ValidationField("portals."+key+".cookie_domain", err.Error())
	}

	if e.OIDC == nil {
		return p, nil
	}

	secret, err := codec.DecryptValue(e.OIDC.ClientSecret)
	if err != nil {
		return Config{}, apperrors.Wrapf(err, apperrors.ErrCodeDecryptionFailed, "decrypt client_secret for portal %s", key)
	}

	scopes := slicesOrDefault(e.OIDC.Scopes)
	rolesClaim := strings.TrimSpace(e.OIDC.RolesClaim)
	if rolesClaim == "" {
		rolesClaim = DefaultRolesClaim
	}
	if err := domainauth.ValidateRolesClaim(rolesClaim); err != nil {
		return Config{}, apperrors.ValidationField("portals."+key+".oidc.roles_claim", err.Error())
	}

	p.OIDC = &OIDCConfig{
		Issuer:       strings.TrimSpace(e.OIDC.Issuer),
		ClientID:     strings.TrimSpace(e.OIDC.ClientID),
		ClientSecret: secret,
		Scopes:       scopes,
		RolesClaim:   rolesClaim,
	}
	return p, nil
}

// slicesOrDefault keeps an explicit empty list empty and only fills the
// default when the key was absent.
func slicesOrDefault(scopes *[]string) []string {
	if scopes == nil {
		return append([]string(nil), DefaultScopes...)
	}
	out := make([]string, 0, len(*scopes))
	for _, s := range *scopes {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// validateCookieDomain rejects public suffixes and domains that do not cover
// the portal hostname, both of which browsers would refuse.
func validateCookieDomain(domain, hostname string) error {
	if domain == "" {
		return nil
	}
	bare := strings.TrimPrefix(domain, ".")
	if bare == "" {
		return errors.New("must not be empty")
	}
	if suffix, icann := publicsuffix.PublicSuffix(bare); icann && suffix == bare {
		return fmt.Errorf("%q is a public suffix", domain)
	}
	if h, _, err := net.SplitHostPort(hostname); err == nil {
		hostname = h
	}
	if hostname != "" && hostname != bare && !strings.HasSuffix(hostname, "."+bare) {
		return fmt.Errorf("%q does not cover hostname %q", domain, hostname)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("portalkey", func(fl validator.FieldLevel) bool {
		return portalKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid portal document")
	}
	fe := verrs[0]
	return apperrors.ValidationField(fe.Namespace(), fmt.Sprintf("failed %q validation for value %v", fe.Tag(), fe.Value()))
}
