package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// User 用户账号；PasswordHash 不对外输出
type User struct {
	ID             string    `json:"id" bson:"_id"`
	Email          string    `json:"email" bson:"email"`
	Username       string    `json:"username" bson:"username"`
	PasswordHash   string    `json:"-" bson:"password_hash"`
	Role           UserRole  `json:"role" bson:"role"`
	ProfilePicture string    `json:"profilePicture,omitempty" bson:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// PublicProfile 对外的用户资料，不含凭据
type PublicProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           UserRole  `json:"role"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile 去掉密码哈希
func (u *User) Profile() *PublicProfile {
	if u == nil {
		return nil
	}
	return &PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// UserSummary 记录引用作者时展示的公开字段
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Summary 返回公开引用字段
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}
