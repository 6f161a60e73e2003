package domain

import "time"

// StaffRole gates API access levels.
type StaffRole string

const (
	StaffRoleAdmin StaffRole = "ADMIN"
	StaffRoleStaff StaffRole = "STAFF"
)

// StaffPrincipal is an API credential for a staff operator.
type StaffPrincipal struct {
	ID           string
	GuildID      int64
	StaffID      int64
	Username     string
	PasswordHash string
	Role         StaffRole
	IsActive     bool
	CreatedAt    time.Time
}
