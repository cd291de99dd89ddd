package repository

import (
	"Reclaim/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation, members []*model.ConversationMember) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetByPeerKeyItem(ctx context.Context, peerKey string, itemID uint64) (*model.Conversation, error)
	IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error)
	GetMembers(ctx context.Context, convID uint64) ([]*model.ConversationMember, error)

	TouchLastMessage(ctx context.Context, convID uint64, content string, msgType int8, senderID uint64) error
	IncrUnreadExcept(ctx context.Context, convID uint64, exceptUserID uint64) error
	ResetUnread(ctx context.Context, convID uint64, userID uint64) error
	SetUnread(ctx context.Context, convID uint64, userID uint64, count int) error

	GetUserConversations(ctx context.Context, userID uint64) ([]*model.ConversationMember, error)
	GetUserConversationIDs(ctx context.Context, userID uint64) ([]uint64, error)
	Archive(ctx context.Context, convID uint64) error
	ListActiveIDs(ctx context.Context) ([]uint64, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 开启事务创建会话及初始成员。
// peer_key+item_id 唯一索引兜底并发重复创建，冲突由调用方重查处理。
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation, members []*model.ConversationMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, m := range members {
			m.ConversationID = conv.ID
			m.JoinedAt = time.Now()
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	return &conv, err
}

// GetByPeerKeyItem 根据成员对与物品定位会话
func (s *conversationRepoImpl) GetByPeerKeyItem(ctx context.Context, peerKey string, itemID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("peer_key = ? AND item_id = ?", peerKey, itemID).
		First(&conv).Error
	return &conv, err
}

// IsMember 检查用户是否是会话成员
func (s *conversationRepoImpl) IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *conversationRepoImpl) GetMembers(ctx context.Context, convID uint64) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Find(&members).Error
	return members, err
}

// TouchLastMessage 更新会话预览信息与活跃时间
func (s *conversationRepoImpl) TouchLastMessage(ctx context.Context, convID uint64, content string, msgType int8, senderID uint64) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_msg_content": content,
			"last_msg_type":    msgType,
			"last_sender_id":   senderID,
			"last_message_at":  time.Now(),
		}).Error
}

// IncrUnreadExcept 给发送者以外的所有成员未读数 +1
func (s *conversationRepoImpl) IncrUnreadExcept(ctx context.Context, convID uint64, exceptUserID uint64) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id <> ?", convID, exceptUserID).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
}

// ResetUnread 清零未读并记录已读时间
func (s *conversationRepoImpl) ResetUnread(ctx context.Context, convID uint64, userID uint64) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": time.Now(),
		}).Error
}

// SetUnread 校准任务回写权威未读数
func (s *conversationRepoImpl) SetUnread(ctx context.Context, convID uint64, userID uint64, count int) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("unread_count", count).Error
}

// GetUserConversations 联表查询成员行并装配会话，仅返回未归档会话
func (s *conversationRepoImpl) GetUserConversations(ctx context.Context, userID uint64) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	err := s.db.WithContext(ctx).
		Preload("Conversation").
		Joins("JOIN conversations c ON c.id = conversation_members.conversation_id").
		Where("conversation_members.user_id = ? AND c.is_active = 1", userID).
		Order("c.last_message_at DESC").
		Find(&members).Error
	return members, err
}

func (s *conversationRepoImpl) GetUserConversationIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Joins("JOIN conversations c ON c.id = conversation_members.conversation_id").
		Where("conversation_members.user_id = ? AND c.is_active = 1", userID).
		Pluck("conversation_members.conversation_id", &ids).Error
	return ids, err
}

// Archive 软删除：归档后不出现在列表，按 ID 仍可取回
func (s *conversationRepoImpl) Archive(ctx context.Context, convID uint64) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update("is_active", false).Error
}

func (s *conversationRepoImpl) ListActiveIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("is_active = 1").
		Pluck("id", &ids).Error
	return ids, err
}
