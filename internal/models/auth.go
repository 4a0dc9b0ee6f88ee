package models

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the structure for registration requests
type RegisterRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Address     string `json:"address"`
	Age         int    `json:"age"`
	Mobile      string `json:"mobile"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ProfileUpdate carries a partial profile edit. Nil fields are left
// untouched; changing any of these fields invalidates and regenerates the
// user's QR credential.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Address     *string `json:"address"`
	Age         *int    `json:"age"`
	Mobile      *string `json:"mobile"`
}
