package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message MongoDB 消息明细模型。
// 按 MsgType 区分负载：Image / Location / SystemAction 三者互斥，
// 只有与类型匹配的字段会被写入。
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID uint64             `bson:"conversation_id" json:"conversationId"` // 关联 MySQL 的会话 ID
	SenderID       uint64             `bson:"sender_id" json:"senderId"`
	MsgType        int                `bson:"msg_type" json:"msgType"` // 1-文本, 2-图片, 3-位置, 4-系统
	Content        string             `bson:"content" json:"content"`

	Image        *ImagePayload    `bson:"image,omitempty" json:"image,omitempty"`
	Location     *LocationPayload `bson:"location,omitempty" json:"location,omitempty"`
	SystemAction string           `bson:"system_action,omitempty" json:"systemAction,omitempty"`

	// IsRead 是 ReadBy 的粗粒度汇总：任一非发送方已读即为 true
	IsRead bool          `bson:"is_read" json:"isRead"`
	ReadAt *time.Time    `bson:"read_at,omitempty" json:"readAt,omitempty"`
	ReadBy []ReadReceipt `bson:"read_by" json:"readBy"`

	Edited   bool       `bson:"edited" json:"edited"`
	EditedAt *time.Time `bson:"edited_at,omitempty" json:"editedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ImagePayload 图片消息负载
type ImagePayload struct {
	URL     string `bson:"url" json:"url"`
	Caption string `bson:"caption,omitempty" json:"caption,omitempty"`
}

// LocationPayload 位置消息负载
type LocationPayload struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
	Address string  `bson:"address,omitempty" json:"address,omitempty"`
}

// ReadReceipt 细粒度已读回执，同一用户至多一条
type ReadReceipt struct {
	UserID uint64    `bson:"user_id" json:"userId"`
	ReadAt time.Time `bson:"read_at" json:"readAt"`
}
