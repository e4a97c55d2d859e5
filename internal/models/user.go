package models

// User represents a registered account. Optional fields are nil when absent.
type User struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Email        *string `json:"email,omitempty"`
	PasswordHash *string `json:"-"` // Not serialized; nil for provider-created accounts
	GoogleID     *string `json:"google_id,omitempty"`
	Secret       *string `json:"secret,omitempty"`
}

// HasPassword reports whether the user can log in with local credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ExternalProfile is the identity returned by an external authentication provider
type ExternalProfile struct {
	Provider    string
	ID          string
	DisplayName string
	Email       *string
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
