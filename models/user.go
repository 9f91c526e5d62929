package models

import "time"

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	PushToken   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	HasPushToken bool      `json:"has_push_token"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		HasPushToken: u.PushToken != "",
		CreatedAt:    u.CreatedAt,
	}
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type SetPushTokenRequest struct {
	Token string `json:"token"`
}
