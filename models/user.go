package models

import "time"

const RoleUser = "user"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phoneno"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is a profile without credentials.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phoneno"`
	Role     string `json:"role"`
}

// Contact is the seller detail disclosed after an enquiry.
type Contact struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phoneno"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}

func (u *User) Contact() Contact {
	return Contact{
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}
