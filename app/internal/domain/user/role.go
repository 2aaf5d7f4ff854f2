package user

import (
	"errors"
	"strings"
)

type RoleCode string

const (
	RoleCodeSuperAdmin RoleCode = "SUPER_ADMIN"
	RoleCodeAdmin      RoleCode = "ADMIN"
	RoleCodeCustomer   RoleCode = "CUSTOMER"
)

func (c RoleCode) IsValid() bool {
	switch c {
	case RoleCodeSuperAdmin, RoleCodeAdmin, RoleCodeCustomer:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may use the admin dashboard.
func (c RoleCode) IsStaff() bool {
	return c == RoleCodeSuperAdmin || c == RoleCodeAdmin
}

var ErrInvalidRoleCode = errors.New("invalid role code")

func ParseRoleCode(s string) (RoleCode, error) {
	c := RoleCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidRoleCode
	}
	return c, nil
}

// CanAssignRole: only SUPER_ADMIN may hand out ADMIN or SUPER_ADMIN; staff may
// create customers.
func CanAssignRole(executorRole RoleCode, targetRole RoleCode) bool {
	switch targetRole {
	case RoleCodeAdmin, RoleCodeSuperAdmin:
		return executorRole == RoleCodeSuperAdmin
	case RoleCodeCustomer:
		return executorRole.IsStaff()
	default:
		return false
	}
}
