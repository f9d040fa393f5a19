package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles stored on the user record. Nothing in this service enforces them;
// they are carried for the clients that do.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// DefaultProfileImage is applied at signup until the user uploads one.
const DefaultProfileImage = "https://example.com/default-profile-image.png"

// User is the persisted account record. Password always holds a bcrypt
// digest once the record has been created; VerificationCode is empty except
// while a password reset is pending.
type User struct {
	ID               primitive.ObjectID
	FullName         string
	Email            string
	Organization     string
	Phone            string
	Address          string
	Age              int
	Role             string
	ProfileImage     string
	Password         string
	VerificationCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile is the response shape for a user. The password digest and the
// verification code have no field here, so they can never serialize into a
// response.
type Profile struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Age          int    `json:"age"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage"`
}

// Public returns the user's profile view.
func (u *User) Public() *Profile {
	return &Profile{
		ID:           u.ID.Hex(),
		FullName:     u.FullName,
		Email:        u.Email,
		Organization: u.Organization,
		Phone:        u.Phone,
		Address:      u.Address,
		Age:          u.Age,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}
}
