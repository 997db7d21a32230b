package models

import "time"

// User is the identity record the access gate resolves tokens against.
// Accounts are provisioned outside the booking API.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" yaml:"name" validate:"notblank"`
	Email     string     `json:"email" yaml:"email" validate:"notblank,email"`
	Role      string     `json:"role" yaml:"role" validate:"oneof=user admin"`
	CreatedAt time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"-"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" yaml:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
