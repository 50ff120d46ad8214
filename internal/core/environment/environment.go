// Package environment implements the Variable Store: a four-scope
// key/value lookup (Global < Collection < Environment < Local) with
// secret flagging, precedence resolution, and masking for display.
package environment

import "time"

// Variable is a single entry in an Environment's variable set.
type Variable struct {
	Key       string
	Value     string
	IsSecret  bool
	IsEnabled bool
	Scope     string // free-form scope tag, e.g. "default", echoed back verbatim
}

// Environment is a team-owned named set of variables. At most one
// Environment per team has IsActive = true (enforced by the repository's
// Activate call, not by this package).
type Environment struct {
	ID        string
	TeamID    string
	Name      string
	IsActive  bool
	Variables []Variable
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GlobalVariable is a team-wide variable, unique per (TeamID, Key).
type GlobalVariable struct {
	TeamID    string
	Key       string
	Value     string
	IsSecret  bool
	IsEnabled bool
}

// Masked returns "***" for secret variables and the real value otherwise.
// Used only at the presentation boundary (server JSON responses) per
// spec.md invariant: "isSecret values MUST be redacted ... but NOT when
// substituted into outgoing wire requests."
func (v Variable) Masked() string {
	if v.IsSecret {
		return "***"
	}
	return v.Value
}

// Masked returns "***" for secret global variables and the real value
// otherwise.
func (g GlobalVariable) Masked() string {
	if g.IsSecret {
		return "***"
	}
	return g.Value
}
