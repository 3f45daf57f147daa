package auth

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is a privilege level. Roles are totally ordered by their numeric rank.
type Role int

const (
	// RoleNone is held by principals that have not been granted anything.
	RoleNone Role = 0
	// RoleEditor can read and write catalog entries.
	RoleEditor Role = 50
	// RoleAdmin can additionally delete catalog entries.
	RoleAdmin Role = 100
)

// DefaultRole is assigned to identities created by first-login registration.
const DefaultRole = RoleEditor

// Rank returns the numeric rank used for comparisons.
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether r grants everything required grants.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "NONE"
	case RoleEditor:
		return "EDITOR"
	case RoleAdmin:
		return "ADMIN"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole decodes a stored rank into a Role. Unknown ranks are rejected
// with an *InvalidRoleError rather than mapped to a default.
func ParseRole(rank int) (Role, error) {
	r := Role(rank)
	if !r.Valid() {
		return RoleNone, &InvalidRoleError{Value: rank}
	}
	return r, nil
}

// ParseRoleName accepts a role name ("editor", "ADMIN") or a numeric rank.
func ParseRoleName(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return RoleNone, nil
	case "EDITOR":
		return RoleEditor, nil
	case "ADMIN":
		return RoleAdmin, nil
	}
	rank, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
	return ParseRole(rank)
}

// Roles lists the known roles in ascending rank.
func Roles() []Role {
	return []Role{RoleNone, RoleEditor, RoleAdmin}
}
