package user

import "time"

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleCode     RoleCode
	CreatedAt    time.Time
}

type ListUsersFilter struct {
	RoleCode *RoleCode
}
