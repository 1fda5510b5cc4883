package auth

import "gatehouse/internal/users"

// Credentials is the signup and login payload. Form fields and JSON are
// both accepted.
type Credentials struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewUserResponse strips a user down to its public fields
func NewUserResponse(u *users.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID, Username: u.Username}
}

// HomeResponse is returned by GET /
type HomeResponse struct {
	User *UserResponse `json:"user"`
}

// MessageResponse carries a human readable message
type MessageResponse struct {
	Message string `json:"message"`
}
