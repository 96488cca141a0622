package enums

import "fmt"

// Role identifies which portal a user belongs to.
type Role string

const (
	RoleMechanic Role = "mechanic"
	RoleCustomer Role = "customer"
)

var validRoles = []Role{RoleMechanic, RoleCustomer}

// IsValid checks whether the given role matches the canonical enum.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw strings into Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
