package metadata

// UserContext represents the authenticated principal, set by auth middleware.
type UserContext struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// HasRole checks whether the user has a specific role.
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks whether the user has the admin role.
func (u *UserContext) IsAdmin() bool {
	return u.HasRole("admin")
}

// AsMap returns the actor scope the validation engine sees. The first role
// is exposed as "role" for single-role equality checks.
func (u *UserContext) AsMap() map[string]any {
	if u == nil {
		return nil
	}
	roles := make([]any, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = r
	}
	m := map[string]any{
		"id":    u.ID,
		"roles": roles,
	}
	if len(u.Roles) > 0 {
		m["role"] = u.Roles[0]
	}
	return m
}
