package es

import "time"

// ItemES 写入 ES 的物品文档，覆盖全文检索需要的字段
type ItemES struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Type        int8      `json:"type"`
	Category    string    `json:"category"`
	Status      int8      `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	City        string    `json:"city"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
