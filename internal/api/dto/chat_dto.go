package dto

import "time"

type StartChatDTO struct {
	ItemID uint64 `json:"item_id" validate:"required"`
	PeerID uint64 `json:"peer_id" validate:"required"`
	// Message 可选开场白，非空时作为首条文本消息发出
	Message string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

type ImagePayloadDTO struct {
	URL     string `json:"url" validate:"required,max=255"`
	Caption string `json:"caption,omitempty" validate:"omitempty,max=255"`
}

type LocationPayloadDTO struct {
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
	Lng     float64 `json:"lng" validate:"min=-180,max=180"`
	Address string  `json:"address,omitempty" validate:"omitempty,max=255"`
}

// SendMessageDTO 负载必须与 msg_type 匹配，服务层校验
type SendMessageDTO struct {
	MsgType  int                 `json:"msg_type" validate:"required,oneof=1 2 3"`
	Content  string              `json:"content" validate:"omitempty,max=2000"`
	Image    *ImagePayloadDTO    `json:"image,omitempty"`
	Location *LocationPayloadDTO `json:"location,omitempty"`
}

type ListMessageDTO struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type ReadReceiptDTO struct {
	UserID uint64    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

type MessageDTO struct {
	ID             string              `json:"id"`
	ConversationID uint64              `json:"conversation_id"`
	SenderID       uint64              `json:"sender_id"`
	MsgType        int                 `json:"msg_type"`
	Content        string              `json:"content"`
	Image          *ImagePayloadDTO    `json:"image,omitempty"`
	Location       *LocationPayloadDTO `json:"location,omitempty"`
	SystemAction   string              `json:"system_action,omitempty"`
	IsRead         bool                `json:"is_read"`
	ReadBy         []ReadReceiptDTO    `json:"read_by"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ConversationDTO 会话列表项
type ConversationDTO struct {
	ID             uint64        `json:"id"`
	ItemID         uint64        `json:"item_id"`
	ItemTitle      string        `json:"item_title"`
	Peer           UserSimpleDTO `json:"peer"`
	LastMsgContent string        `json:"last_msg_content"`
	LastMsgType    int8          `json:"last_msg_type"`
	LastMessageAt  time.Time     `json:"last_message_at"`
	UnreadCount    int           `json:"unread_count"`
	StartedAt      time.Time     `json:"started_at"`
}

// ChatPushDTO WS 推送信封
type ChatPushDTO struct {
	Event   string      `json:"event"`
	Payload *MessageDTO `json:"payload"`
}
