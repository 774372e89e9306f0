package model

// Role is the institutional role an upstream identity provider assigns to
// an authenticated user.
type Role string

const (
	RoleStudent  Role = "student"
	RoleMentor   Role = "mentor"
	RoleHOD      Role = "hod"
	RoleWarden   Role = "warden"
	RoleSecurity Role = "security"
)

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Unit string `json:"unit"`
}

// ParseRole maps a header value onto a known role.
func ParseRole(v string) (Role, bool) {
	switch r := Role(v); r {
	case RoleStudent, RoleMentor, RoleHOD, RoleWarden, RoleSecurity:
		return r, true
	}
	return "", false
}
