package dto

import "time"

type RegisterDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=64"`
	Nickname string `json:"nickname" validate:"required,min=1,max=50"`
}

type CredentialDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=64"`
}

// UpdateProfileDTO 局部更新，nil 字段不落库
type UpdateProfileDTO struct {
	Nickname    *string `json:"nickname,omitempty" validate:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=200"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	NotifyEmail *bool   `json:"notify_email,omitempty"`
	NotifyPush  *bool   `json:"notify_push,omitempty"`
}

type BadgeDTO struct {
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

type UserDTO struct {
	ID            uint64     `json:"id"`
	Email         *string    `json:"email,omitempty"`
	Nickname      string     `json:"nickname"`
	AvatarURL     string     `json:"avatar_url"`
	Bio           *string    `json:"bio,omitempty"`
	Points        int        `json:"points"`
	Level         int        `json:"level"`
	ItemsPosted   int        `json:"items_posted"`
	ItemsReturned int        `json:"items_returned"`
	NotifyEmail   bool       `json:"notify_email"`
	NotifyPush    bool       `json:"notify_push"`
	Badges        []BadgeDTO `json:"badges"`
	CreatedAt     time.Time  `json:"created_at"`
}

// UserSimpleDTO 会话列表、排行榜等场景的精简用户信息
type UserSimpleDTO struct {
	ID        uint64 `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Level     int    `json:"level"`
}

type LeaderboardEntryDTO struct {
	Rank      int    `json:"rank"`
	UserID    uint64 `json:"user_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
}

// CommunityStatsDTO 社区概览统计
type CommunityStatsDTO struct {
	TotalUsers    int64 `json:"total_users"`
	TotalItems    int64 `json:"total_items"`
	ActiveItems   int64 `json:"active_items"`
	ResolvedItems int64 `json:"resolved_items"`
	TotalMatches  int64 `json:"total_matches"`
}
