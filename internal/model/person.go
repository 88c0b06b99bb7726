// Package model defines the domain records shared by every pipeline stage.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Network identifies a public social or professional platform.
type Network string

const (
	NetworkLinkedIn Network = "linkedin"
	NetworkTwitter  Network = "twitter"
	NetworkGitHub   Network = "github"
)

// Networks returns the fixed set of supported networks in canonical order.
func Networks() []Network {
	return []Network{NetworkLinkedIn, NetworkTwitter, NetworkGitHub}
}

// HighTrust reports whether identity claims on the network are hard to forge.
// LinkedIn profiles carry verified-company linkage; the others do not.
func (n Network) HighTrust() bool {
	return n == NetworkLinkedIn
}

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case NetworkLinkedIn, NetworkTwitter, NetworkGitHub:
		return n, nil
	case "x":
		return NetworkTwitter, nil
	}
	return "", eris.Wrapf(ErrInvalidInput, "unknown network %q", s)
}

// Seed is the caller-supplied description of the person to resolve.
type Seed struct {
	PersonID    string             `json:"person_id,omitempty"`
	Name        string             `json:"name"`
	Company     string             `json:"company,omitempty"`
	Role        string             `json:"role,omitempty"`
	LinkedInURL string             `json:"linkedinUrl,omitempty"`
	Email       string             `json:"email,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	ProfileURLs map[Network]string `json:"profile_urls,omitempty"`
}

// URLFor returns the profile URL the caller supplied for a network, if any.
func (s Seed) URLFor(n Network) string {
	if u := strings.TrimSpace(s.ProfileURLs[n]); u != "" {
		return u
	}
	if n == NetworkLinkedIn {
		return strings.TrimSpace(s.LinkedInURL)
	}
	return ""
}

// Validate rejects seeds that cannot be resolved.
func (s Seed) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return eris.Wrap(ErrInvalidInput, "name is required")
	}
	return nil
}

// Person is the identity root. It is created on first resolution and updated,
// never replaced, afterwards.
type Person struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonFromSeed builds the person record a seed describes.
func PersonFromSeed(s Seed) Person {
	return Person{
		ID:      s.PersonID,
		Key:     PersonKey(s.Name, s.Company),
		Name:    strings.TrimSpace(s.Name),
		Company: strings.TrimSpace(s.Company),
		Role:    strings.TrimSpace(s.Role),
		Email:   strings.TrimSpace(s.Email),
		Phone:   strings.TrimSpace(s.Phone),
	}
}

// Merge applies the non-empty fields of update to p and recomputes the
// natural key. Identity and timestamps are kept from p.
func (p Person) Merge(update Person) Person {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&p.Name, update.Name)
	set(&p.Company, update.Company)
	set(&p.Role, update.Role)
	set(&p.Email, update.Email)
	set(&p.Phone, update.Phone)
	p.Key = PersonKey(p.Name, p.Company)
	return p
}

// PersonKey is the natural key used to recognise a returning person.
func PersonKey(name, company string) string {
	norm := func(v string) string {
		return strings.Join(strings.Fields(strings.ToLower(v)), " ")
	}
	return norm(name) + "|" + norm(company)
}
