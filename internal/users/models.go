package users

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
