package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleDonor Role = "donor"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleAdmin
}

// User is a registered identity. PasswordHash never leaves the service.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"` // unique, lowercase
	PasswordHash  string             `bson:"password_hash" json:"-"`
	Role          Role               `bson:"role" json:"role"`
	ContactNumber string             `bson:"contact_number,omitempty" json:"contact_number,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserPatch holds the fields of a partial user update. A nil field is left
// untouched.
type UserPatch struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Role          *Role   `json:"role"`
	ContactNumber *string `json:"contact_number"`
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.ContactNumber == nil
}

// OwnerSummary is the slice of an identity exposed on campaign reads.
type OwnerSummary struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name,omitempty"`
	Email         string             `json:"email"`
	ContactNumber string             `json:"contact_number,omitempty"`
}

func (u User) Summary() OwnerSummary {
	return OwnerSummary{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
	}
}

// Apply writes the patch onto u in place.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.ContactNumber != nil {
		u.ContactNumber = *p.ContactNumber
	}
}

// Actor is the authenticated identity a request acts as. It is built only
// from a server-side identity read, never from client input.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
}

func (u User) Actor() *Actor {
	return &Actor{ID: u.ID, Role: u.Role}
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
