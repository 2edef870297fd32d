package model

// User is the identity a query runs on behalf of.
type User struct {
	Name   string   `json:"name"`
	Groups []string `json:"groups,omitempty"`
}

// InAnyGroup reports whether the user belongs to at least one of groups.
// A nil user belongs to no groups.
func (u *User) InAnyGroup(groups []string) bool {
	if u == nil {
		return false
	}
	for _, want := range groups {
		for _, have := range u.Groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

// String returns the user name, or "anonymous" for a nil user.
func (u *User) String() string {
	if u == nil || u.Name == "" {
		return "anonymous"
	}
	return u.Name
}
