package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ReturnsIndependentCopies(t *testing.T) {
	src := Config{
		Name: "p",
		OIDC: &OIDCConfig{Issuer: "https://idp.example.com", ClientID: "p", Scopes: []string{"openid", "email"}},
	}
	reg := NewRegistry(Settings{}, src)

	src.OIDC.Issuer = "https://evil.example.com"
	src.OIDC.Scopes[0] = "changed"

	got, ok := reg.Get("p")
	require.True(t, ok)
	got.OIDC.ClientID = "mutated"
	got.OIDC.Scopes[1] = "mutated"

	all := reg.All()
	require.Len(t, all, 1)
	all[0].OIDC.Scopes = append(all[0].OIDC.Scopes[:0], "mutated")

	again, _ := reg.Get("p")
	assert.Equal(t, "https://idp.example.com", again.OIDC.Issuer)
	assert.Equal(t, "p", again.OIDC.ClientID)
	assert.Equal(t, []string{"openid", "email"}, again.OIDC.Scopes)
}

func TestRegistry_NilOIDCAndEmptyScopes(t *testing.T) {
	reg := NewRegistry(Settings{},
		Config{Name: "static"},
		Config{Name: "noscopes", OIDC: &OIDCConfig{Scopes: []string{}}},
	)

	static, _ := reg.Get("static")
	assert.Nil(t, static.OIDC)

	noscopes, _ := reg.Get("noscopes")
	assert.NotNil(t, noscopes.OIDC.Scopes)
	assert.Empty(t, noscopes.OIDC.Scopes)
}
