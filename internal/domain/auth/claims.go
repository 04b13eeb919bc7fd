package auth

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Standard claim names read by the minimizer.
const (
	ClaimPreferredUsername = "preferred_username"
	ClaimName              = "name"
	ClaimSubject           = "sub"
)

// MinimizeInput is the provider's validated assertion plus the context the
// gateway adds.
type MinimizeInput struct {
	Claims     map[string]any
	RolesClaim string
	Portal     string
	ReturnURL  string
}

// Minimize builds a new principal holding only display name, subject, roles,
// portal and return URL. The provider principal is replaced, never merged.
func Minimize(in MinimizeInput) (Principal, error) {
	roles, err := ExtractRoles(in.Claims, in.RolesClaim)
	if err != nil {
		return Principal{}, err
	}

	display := stringClaim(in.Claims, ClaimPreferredUsername)
	if display == "" {
		display = stringClaim(in.Claims, ClaimName)
	}

	return Principal{
		Subject:     stringClaim(in.Claims, ClaimSubject),
		DisplayName: display,
		Roles:       roles,
		Portal:      in.Portal,
		ReturnURL:   in.ReturnURL,
	}, nil
}

// ExtractRoles evaluates expr (a JMESPath expression such as "roles" or
// "realm_access.roles") against claims. A string result is one role; a list
// contributes each string element. Duplicates are dropped, order kept.
func ExtractRoles(claims map[string]any, expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || len(claims) == 0 {
		return nil, nil
	}
	res, err := jmespath.Search(expr, claims)
	if err != nil {
		return nil, fmt.Errorf("evaluate roles claim %q: %w", expr, err)
	}

	var roles []string
	seen := map[string]struct{}{}
	add := func(v any) {
		s, ok := v.(string)
		if !ok || s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		roles = append(roles, s)
	}

	switch v := res.(type) {
	case string:
		add(v)
	case []any:
		for _, e := range v {
			add(e)
		}
	case []string:
		for _, e := range v {
			add(e)
		}
	}
	return roles, nil
}

// ValidateRolesClaim checks that expr compiles.
func ValidateRolesClaim(expr string) error {
	if _, err := jmespath.Compile(expr); err != nil {
		return fmt.Errorf("invalid roles claim %q: %w", expr, err)
	}
	return nil
}

func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
