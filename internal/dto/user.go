package dto

import (
	"time"

	"github.com/zfogg/huddle/internal/models"
)

// PublicUser is the only user shape embedded in post, comment, reply,
// notification and chat payloads. Never carries email or password data.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// UserDetailResponse is what a user sees about themselves
type UserDetailResponse struct {
	PublicUser
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest for native registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30,alphanum"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=50"`
}

// LoginRequest accepts either an email or a username in Login
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      UserDetailResponse `json:"user"`
}

// FollowResponse reports the follow state after a follow/unfollow and
// whether the call changed it.
type FollowResponse struct {
	Following bool `json:"following"`
	Changed   bool `json:"changed"`
}

// ToPublicUser converts models.User to PublicUser
func ToPublicUser(user *models.User) PublicUser {
	if user == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}
}

// ToUserDetailResponse converts models.User for the account owner
func ToUserDetailResponse(user *models.User) UserDetailResponse {
	return UserDetailResponse{
		PublicUser: ToPublicUser(user),
		Email:      user.Email,
		CreatedAt:  user.CreatedAt,
	}
}

// ProfileResponse is a user's public profile as seen by the viewer
type ProfileResponse struct {
	PublicUser
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
}

// ToPublicUsers converts a list of users in the order given
func ToPublicUsers(users []*models.User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, ToPublicUser(u))
	}
	return out
}
