package dto

import "time"

type CreateItemDTO struct {
	Title        string   `json:"title" validate:"required,min=1,max=255"`
	Description  string   `json:"description" validate:"required"`
	Type         int8     `json:"type" validate:"required,oneof=1 2"`
	Category     string   `json:"category" validate:"required"`
	Tags         []string `json:"tags" validate:"omitempty,max=10"`
	ContactInfo  string   `json:"contact_info" validate:"omitempty,max=255"`
	Reward       *string  `json:"reward,omitempty" validate:"omitempty,max=255"`
	Address      string   `json:"address" validate:"omitempty,max=255"`
	City         string   `json:"city" validate:"required,max=100"`
	State        string   `json:"state" validate:"omitempty,max=100"`
	Country      string   `json:"country" validate:"omitempty,max=100"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
	DateOccurred string   `json:"date_occurred" validate:"required,datetime=2006-01-02"`
}

// UpdateItemDTO 局部更新，nil 字段不落库
type UpdateItemDTO struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=10"`
	ContactInfo *string  `json:"contact_info,omitempty" validate:"omitempty,max=255"`
	Reward      *string  `json:"reward,omitempty" validate:"omitempty,max=255"`
}

type ResolveItemDTO struct {
	ResolvedBy *uint64 `json:"resolved_by,omitempty"` // 协助找回的用户，可为空
}

type ListItemDTO struct {
	Type     int8    `form:"type" validate:"omitempty,oneof=1 2"`
	Category string  `form:"category"`
	City     string  `form:"city"`
	Lat      float64 `form:"lat" validate:"omitempty,min=-90,max=90"`
	Lng      float64 `form:"lng" validate:"omitempty,min=-180,max=180"`
	RadiusM  float64 `form:"radius_m" validate:"omitempty,min=0,max=100000"`
	Page     int     `form:"page" validate:"omitempty,min=1"`
	PageSize int     `form:"page_size" validate:"omitempty,min=1,max=50"`
	SortBy   string  `form:"sort_by" validate:"omitempty,oneof=created_at views date_occurred"`
	Order    string  `form:"order" validate:"omitempty,oneof=asc desc"`
}

type SearchItemDTO struct {
	Keyword  string `form:"q" validate:"required,min=1,max=100"`
	Type     int8   `form:"type" validate:"omitempty,oneof=1 2"`
	Category string `form:"category"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=50"`
}

type ItemImageDTO struct {
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url"`
	Caption   string `json:"caption,omitempty"`
	SortOrder int    `json:"sort_order"`
}

type ItemDTO struct {
	ID           uint64         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Type         int8           `json:"type"`
	Category     string         `json:"category"`
	Status       int8           `json:"status"`
	Tags         []string       `json:"tags"`
	ContactInfo  string         `json:"contact_info,omitempty"`
	Reward       *string        `json:"reward,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city"`
	State        string         `json:"state,omitempty"`
	Country      string         `json:"country,omitempty"`
	Lat          float64        `json:"lat"`
	Lng          float64        `json:"lng"`
	DateOccurred time.Time      `json:"date_occurred"`
	Views        int            `json:"views"`
	IsResolved   bool           `json:"is_resolved"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	ExpiresAt    time.Time      `json:"expires_at"`
	CreatedAt    time.Time      `json:"created_at"`
	Images       []ItemImageDTO `json:"images"`
	Owner        UserSimpleDTO  `json:"owner"`

	// PotentialMatches 已持久化的候选匹配数，创建与详情时填充
	PotentialMatches int `json:"potential_matches"`

	// DistanceM 仅附近查询时填充
	DistanceM *float64 `json:"distance_m,omitempty"`
}

// MatchDTO 候选匹配项
type MatchDTO struct {
	Item       *ItemDTO  `json:"item"`
	Confidence float64   `json:"confidence"`
	DistanceM  float64   `json:"distance_m"`
	MatchedAt  time.Time `json:"matched_at"`
}
