package identity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBreakGlassAdmin always resolves to the admin role so an operator can
// reach the admin views before any profile has been promoted.
const DefaultBreakGlassAdmin = "hello@venturemond.com"

// Policy holds the identities that bypass the profile lookup.
type Policy struct {
	admins map[string]struct{}
}

type policyFile struct {
	BreakGlassAdmins []string `yaml:"break_glass_admins"`
}

// NewPolicy builds a policy from a list of emails. An empty list yields the
// default break-glass identity.
func NewPolicy(emails []string) *Policy {
	p := &Policy{admins: make(map[string]struct{})}
	for _, email := range emails {
		key := normalizeEmail(email)
		if key != "" {
			p.admins[key] = struct{}{}
		}
	}
	if len(p.admins) == 0 {
		p.admins[DefaultBreakGlassAdmin] = struct{}{}
	}
	return p
}

// LoadPolicy reads the policy from a YAML file. With an empty path the
// fallback list is used instead.
func LoadPolicy(path string, fallback []string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return NewPolicy(fallback), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse access policy: %w", err)
	}
	return NewPolicy(file.BreakGlassAdmins), nil
}

// IsBreakGlass reports whether email is a break-glass administrator.
func (p *Policy) IsBreakGlass(email string) bool {
	if p == nil {
		return false
	}
	_, ok := p.admins[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
