package models

import "strings"

// Role is the closed set of caller roles. Precedence is
// admin > mentor > intern > guest and is fixed.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMentor Role = "mentor"
	RoleIntern Role = "intern"
	RoleGuest  Role = "guest"
)

// ParseRole maps an arbitrary claim string onto the closed set.
// Anything unknown degrades to guest.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleMentor:
		return RoleMentor
	case RoleIntern:
		return RoleIntern
	default:
		return RoleGuest
	}
}

func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleMentor:
		return 2
	case RoleIntern:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r has the precedence of other or higher.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func (r Role) String() string {
	return string(r)
}
