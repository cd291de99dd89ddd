package model

import "time"

// Conversation 会话主表，围绕一个物品的双人会话
type Conversation struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PeerKey        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_peer_item" json:"peerKey"` // uid小_uid大
	ItemID         uint64    `gorm:"not null;uniqueIndex:idx_peer_item" json:"itemId"`
	LastMsgContent string    `gorm:"type:varchar(255)" json:"lastMsgContent"`
	LastMsgType    int8      `gorm:"not null;default:1" json:"lastMsgType"`
	LastSenderID   uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt  time.Time `gorm:"index" json:"lastMessageAt"`
	IsActive       bool      `gorm:"type:tinyint(1);not null;default:1;index" json:"isActive"` // 软删除标记
	StartedAt      time.Time `json:"startedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationMember 会话成员表，每方独立维护未读计数
type ConversationMember struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64     `gorm:"uniqueIndex:idx_conv_user" json:"conversationId"`
	UserID         uint64     `gorm:"uniqueIndex:idx_conv_user;index" json:"userId"`
	UnreadCount    int        `gorm:"not null;default:0" json:"unreadCount"` // 反规范化缓存，权威值以消息日志为准
	LastReadAt     *time.Time `json:"lastReadAt"`
	JoinedAt       time.Time  `json:"joinedAt"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation"`
}

func (ConversationMember) TableName() string { return "conversation_members" }
