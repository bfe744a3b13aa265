// Package identity defines the boundary with the external identity provider.
// The server consumes only the normalized profile; validating provider trust
// (token exchange, signature checks) is the adapter's job, not ours.
package identity

import "strings"

// Profile is the provider profile handed to login. Email is the only field
// authentication requires; the rest enrich the user record on activation.
type Profile struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture"`
}

// NormalizedEmail returns the profile email trimmed and lower-cased, the
// form under which user emails are stored and compared. Empty means the
// provider supplied no usable email.
func (p Profile) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}
