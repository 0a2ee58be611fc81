package domain

import "time"

// MaxUsernameLength bounds a display name; it matches the users column width.
const MaxUsernameLength = 255

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// User is a registered identity. The display name is the identity.
type User struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"-"`
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() User {
	return User{
		Username:  m.Username,
		CreatedAt: m.CreatedAt,
	}
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
}

// UserResponse is one entry of GET /users.
type UserResponse struct {
	Username string `json:"username"`
}

// ToResponse strips everything but the display name.
func (u User) ToResponse() UserResponse {
	return UserResponse{Username: u.Username}
}
