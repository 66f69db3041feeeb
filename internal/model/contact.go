package model

import "strings"

type ContactMethod string

const (
	ContactMethodSMS   ContactMethod = "SMS"
	ContactMethodEmail ContactMethod = "EMAIL"
)

// Normalized maps the method to its canonical uppercase form. Resolver
// responses are not guaranteed to agree on casing.
func (m ContactMethod) Normalized() ContactMethod {
	return ContactMethod(strings.ToUpper(string(m)))
}

// ContactChannel is one entry of a recipient's contact settings, as returned
// by the contact resolver. Entries arrive ranked by recipient preference.
type ContactChannel struct {
	Method      ContactMethod `json:"contact_method"`
	Destination string        `json:"destination"`
	Enabled     bool          `json:"enabled"`
}

// Dispatchable reports whether the channel can carry a generic message.
// Only SMS and email are supported fallback targets.
func (c ContactChannel) Dispatchable() bool {
	switch c.Method.Normalized() {
	case ContactMethodSMS, ContactMethodEmail:
		return c.Enabled
	}
	return false
}
