package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserRecord is the authenticated user as reported by the marketplace.
type UserRecord struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	OrganizationName *string   `json:"organization_name"`
	Roles            []string  `json:"roles"`
	CreatedAt        Timestamp `json:"created_at"`
	UpdatedAt        Timestamp `json:"updated_at"`
}

// HasRole reports whether the user carries role.
func (u UserRecord) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Organization returns the organization name or "N/A".
func (u UserRecord) Organization() string {
	if u.OrganizationName == nil || *u.OrganizationName == "" {
		return "N/A"
	}
	return *u.OrganizationName
}
