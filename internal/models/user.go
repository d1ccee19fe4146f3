package models

import "time"

type UserRole string

const (
	UserRoleUser     UserRole = "USER"
	UserRoleBusiness UserRole = "BUSINESS"
	UserRoleAdmin    UserRole = "ADMIN"
)

var UserRoles = []UserRole{UserRoleUser, UserRoleBusiness, UserRoleAdmin}

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleBusiness, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	Name             string
	Role             UserRole
	MembershipExpiry *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsMember reports whether the paid membership is still running at now.
// The expiry instant itself is no longer covered.
func (u User) IsMember(now time.Time) bool {
	return u.MembershipExpiry != nil && now.Before(*u.MembershipExpiry)
}

type UserWithStats struct {
	User
	CouponCount int
}

type UserPatch struct {
	Name             *string
	Role             *UserRole
	MembershipExpiry *time.Time
	ClearMembership  bool
}

type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
