package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/consts"
	"Reclaim/internal/pkg/minio"
	"Reclaim/internal/pkg/mongo"
	"Reclaim/internal/pkg/redis"
	"Reclaim/internal/pkg/util"
	"Reclaim/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// ChatPushEvent WS 推送事件名
const ChatPushEvent = "receive-message"

type ChatService interface {
	FindOrCreate(ctx context.Context, userID uint64, startDTO *dto.StartChatDTO) (*dto.ConversationDTO, error)
	GetConversations(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error)
	SendMessage(ctx context.Context, userID, convID uint64, msgDTO *dto.SendMessageDTO) (*dto.MessageDTO, error)
	ListMessages(ctx context.Context, userID, convID uint64, page, pageSize int) ([]*dto.MessageDTO, util.Pagination, error)
	MarkChatRead(ctx context.Context, userID, convID uint64) error
	UnreadTotal(ctx context.Context, userID uint64) (int, error)
	ArchiveConversation(ctx context.Context, userID, convID uint64) error
	EnsureMember(ctx context.Context, userID, convID uint64) error
}

type ChatServiceImpl struct {
	convRepo repository.ConversationRepo
	msgRepo  mongo.MessageRepo
	itemRepo repository.ItemRepo
	userRepo repository.UserRepo
}

func NewChatService(
	convRepo repository.ConversationRepo,
	msgRepo mongo.MessageRepo,
	itemRepo repository.ItemRepo,
	userRepo repository.UserRepo,
) ChatService {
	return &ChatServiceImpl{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
	}
}

// peerKey 成员对的规范形式：小 ID 在前，与参与方传参顺序无关
func peerKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatUint(a, 10) + "_" + strconv.FormatUint(b, 10)
}

// peerFromKey 从 peer_key 推导对端用户
func peerFromKey(key string, self uint64) uint64 {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return 0
	}
	a, _ := strconv.ParseUint(parts[0], 10, 64)
	b, _ := strconv.ParseUint(parts[1], 10, 64)
	if a == self {
		return b
	}
	return a
}

// FindOrCreate 同一物品同一对用户只有一个会话。
// 并发撞上唯一索引时重查一次拿已存在的会话。
// 可携带开场白，建会话后作为首条文本消息发出。
func (s *ChatServiceImpl) FindOrCreate(ctx context.Context, userID uint64, startDTO *dto.StartChatDTO) (*dto.ConversationDTO, error) {
	if startDTO.PeerID == userID {
		return nil, ErrChatSelf
	}

	item, err := s.itemRepo.GetItem(ctx, startDTO.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if _, err := s.userRepo.GetUserByID(ctx, startDTO.PeerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := peerKey(userID, startDTO.PeerID)

	conv, err := s.convRepo.GetByPeerKeyItem(ctx, key, startDTO.ItemID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		now := time.Now()
		conv = &model.Conversation{
			PeerKey:       key,
			ItemID:        startDTO.ItemID,
			LastMessageAt: now,
			IsActive:      true,
			StartedAt:     now,
		}
		members := []*model.ConversationMember{
			{UserID: userID},
			{UserID: startDTO.PeerID},
		}
		if err := s.convRepo.CreateConversation(ctx, conv, members); err != nil {
			// 唯一索引冲突说明对方刚建好，重查复用
			conv, err = s.convRepo.GetByPeerKeyItem(ctx, key, startDTO.ItemID)
			if err != nil {
				return nil, ErrChatConflict
			}
		}
	}

	var firstMsg *dto.MessageDTO
	if content := strings.TrimSpace(startDTO.Message); content != "" {
		firstMsg, err = s.SendMessage(ctx, userID, conv.ID, &dto.SendMessageDTO{
			MsgType: consts.MsgTypeText,
			Content: content,
		})
		if err != nil {
			return nil, err
		}
	}

	convDTO, err := s.toConversationDTO(ctx, conv, userID, 0)
	if err != nil {
		return nil, err
	}
	convDTO.ItemTitle = item.Title
	if firstMsg != nil {
		convDTO.LastMsgContent = textPreview(firstMsg.Content)
		convDTO.LastMsgType = int8(firstMsg.MsgType)
		convDTO.LastMessageAt = firstMsg.CreatedAt
	}
	return convDTO, nil
}

func (s *ChatServiceImpl) GetConversations(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error) {
	members, err := s.convRepo.GetUserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]uint64, 0, len(members))
	itemIDs := make([]uint64, 0, len(members))
	for _, m := range members {
		peerIDs = append(peerIDs, peerFromKey(m.Conversation.PeerKey, userID))
		itemIDs = append(itemIDs, m.Conversation.ItemID)
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	usersByID := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	items, err := s.itemRepo.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[uint64]*model.Item, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}

	convDTOs := make([]*dto.ConversationDTO, 0, len(members))
	for _, m := range members {
		conv := m.Conversation
		convDTO := &dto.ConversationDTO{
			ID:             conv.ID,
			ItemID:         conv.ItemID,
			LastMsgContent: conv.LastMsgContent,
			LastMsgType:    conv.LastMsgType,
			LastMessageAt:  conv.LastMessageAt,
			UnreadCount:    m.UnreadCount,
			StartedAt:      conv.StartedAt,
		}
		if it := itemsByID[conv.ItemID]; it != nil {
			convDTO.ItemTitle = it.Title
		}
		peerID := peerFromKey(conv.PeerKey, userID)
		convDTO.Peer = dto.UserSimpleDTO{ID: peerID}
		if u := usersByID[peerID]; u != nil {
			convDTO.Peer.Nickname = u.Nickname
			convDTO.Peer.AvatarURL = minio.GetPublicURL(u.AvatarURL)
			convDTO.Peer.Level = u.Level()
		}
		convDTOs = append(convDTOs, convDTO)
	}
	return convDTOs, nil
}

// SendMessage 消息落 Mongo，同步维护会话预览与未读缓存，再经 Redis 推送。
// 负载必须与消息类型严格匹配。
func (s *ChatServiceImpl) SendMessage(ctx context.Context, userID, convID uint64, msgDTO *dto.SendMessageDTO) (*dto.MessageDTO, error) {
	if err := s.EnsureMember(ctx, userID, convID); err != nil {
		return nil, err
	}

	msg, err := buildMessage(convID, userID, msgDTO)
	if err != nil {
		return nil, err
	}

	if err := s.msgRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	preview := previewOf(msg)
	if err := s.convRepo.TouchLastMessage(ctx, convID, preview, int8(msg.MsgType), userID); err != nil {
		log.ErrorContext(ctx, "touch last message error", "convID", convID, "err", err)
	}
	if err := s.convRepo.IncrUnreadExcept(ctx, convID, userID); err != nil {
		log.ErrorContext(ctx, "incr unread error", "convID", convID, "err", err)
	}

	msgOut := toMessageDTO(msg)

	// WS 在线推送，离线端下次拉取补齐
	push := &dto.ChatPushDTO{Event: ChatPushEvent, Payload: msgOut}
	if payload, err := json.Marshal(push); err == nil {
		if err := redis.Publish(ctx, consts.ChatChannelKey+strconv.FormatUint(convID, 10), payload); err != nil {
			log.ErrorContext(ctx, "publish chat message error", "convID", convID, "err", err)
		}
	}

	return msgOut, nil
}

// ListMessages 拉取一页消息并给本页他人消息补已读回执，
// 之后以权威计数校准未读缓存。
func (s *ChatServiceImpl) ListMessages(ctx context.Context, userID, convID uint64, page, pageSize int) ([]*dto.MessageDTO, util.Pagination, error) {
	if err := s.EnsureMember(ctx, userID, convID); err != nil {
		return nil, util.Pagination{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	messages, total, err := s.msgRepo.GetPage(ctx, convID, page, pageSize)
	if err != nil {
		return nil, util.Pagination{}, err
	}

	unreadIDs := make([]primitive.ObjectID, 0, len(messages))
	for _, m := range messages {
		if m.SenderID == userID {
			continue
		}
		seen := false
		for _, r := range m.ReadBy {
			if r.UserID == userID {
				seen = true
				break
			}
		}
		if !seen {
			unreadIDs = append(unreadIDs, m.ID)
		}
	}
	if len(unreadIDs) > 0 {
		if err := s.msgRepo.MarkReadByUser(ctx, convID, userID, unreadIDs); err != nil {
			log.ErrorContext(ctx, "mark read error", "convID", convID, "err", err)
		} else if count, err := s.msgRepo.CountUnread(ctx, convID, userID); err == nil {
			if err := s.convRepo.SetUnread(ctx, convID, userID, int(count)); err != nil {
				log.ErrorContext(ctx, "sync unread cache error", "convID", convID, "err", err)
			}
		}
	}

	msgDTOs := make([]*dto.MessageDTO, 0, len(messages))
	for _, m := range messages {
		msgDTOs = append(msgDTOs, toMessageDTO(m))
	}
	return msgDTOs, util.NewPagination(page, pageSize, total), nil
}

// MarkChatRead 显式全量已读：缓存清零，消息日志补全回执
func (s *ChatServiceImpl) MarkChatRead(ctx context.Context, userID, convID uint64) error {
	if err := s.EnsureMember(ctx, userID, convID); err != nil {
		return err
	}
	if err := s.msgRepo.MarkAllReadByUser(ctx, convID, userID); err != nil {
		return err
	}
	return s.convRepo.ResetUnread(ctx, convID, userID)
}

// UnreadTotal 全部会话未读之和，走缓存计数
func (s *ChatServiceImpl) UnreadTotal(ctx context.Context, userID uint64) (int, error) {
	members, err := s.convRepo.GetUserConversations(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range members {
		total += m.UnreadCount
	}
	return total, nil
}

func (s *ChatServiceImpl) ArchiveConversation(ctx context.Context, userID, convID uint64) error {
	if err := s.EnsureMember(ctx, userID, convID); err != nil {
		return err
	}
	return s.convRepo.Archive(ctx, convID)
}

// EnsureMember 会话存在性与成员资格校验
func (s *ChatServiceImpl) EnsureMember(ctx context.Context, userID, convID uint64) error {
	if _, err := s.convRepo.GetConversation(ctx, convID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	ok, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func (s *ChatServiceImpl) toConversationDTO(ctx context.Context, conv *model.Conversation, userID uint64, unread int) (*dto.ConversationDTO, error) {
	convDTO := &dto.ConversationDTO{
		ID:             conv.ID,
		ItemID:         conv.ItemID,
		LastMsgContent: conv.LastMsgContent,
		LastMsgType:    conv.LastMsgType,
		LastMessageAt:  conv.LastMessageAt,
		UnreadCount:    unread,
		StartedAt:      conv.StartedAt,
	}

	peerID := peerFromKey(conv.PeerKey, userID)
	convDTO.Peer = dto.UserSimpleDTO{ID: peerID}
	if peer, err := s.userRepo.GetUserByID(ctx, peerID); err == nil {
		convDTO.Peer.Nickname = peer.Nickname
		convDTO.Peer.AvatarURL = minio.GetPublicURL(peer.AvatarURL)
		convDTO.Peer.Level = peer.Level()
	}
	return convDTO, nil
}

// buildMessage 负载与类型匹配校验后组装 Mongo 文档
func buildMessage(convID, senderID uint64, msgDTO *dto.SendMessageDTO) (*mongo.Message, error) {
	msg := &mongo.Message{
		ConversationID: convID,
		SenderID:       senderID,
		MsgType:        msgDTO.MsgType,
		Content:        msgDTO.Content,
		CreatedAt:      time.Now(),
	}

	switch msgDTO.MsgType {
	case consts.MsgTypeText:
		if strings.TrimSpace(msgDTO.Content) == "" || msgDTO.Image != nil || msgDTO.Location != nil {
			return nil, ErrMsgPayloadMismatch
		}
	case consts.MsgTypeImage:
		if msgDTO.Image == nil || msgDTO.Location != nil {
			return nil, ErrMsgPayloadMismatch
		}
		msg.Image = &mongo.ImagePayload{URL: msgDTO.Image.URL, Caption: msgDTO.Image.Caption}
	case consts.MsgTypeLocation:
		if msgDTO.Location == nil || msgDTO.Image != nil {
			return nil, ErrMsgPayloadMismatch
		}
		msg.Location = &mongo.LocationPayload{
			Lat:     msgDTO.Location.Lat,
			Lng:     msgDTO.Location.Lng,
			Address: msgDTO.Location.Address,
		}
	default:
		return nil, ErrMsgPayloadMismatch
	}

	return msg, nil
}

const previewMaxRunes = 100

// textPreview 截断按字符数计，不能把多字节字符劈成半个
func textPreview(content string) string {
	if utf8.RuneCountInString(content) <= previewMaxRunes {
		return content
	}
	return string([]rune(content)[:previewMaxRunes])
}

// previewOf 会话列表里的最后一条消息摘要
func previewOf(msg *mongo.Message) string {
	switch msg.MsgType {
	case consts.MsgTypeImage:
		return "[图片]"
	case consts.MsgTypeLocation:
		return "[位置]"
	default:
		return textPreview(msg.Content)
	}
}

func toMessageDTO(msg *mongo.Message) *dto.MessageDTO {
	msgDTO := &dto.MessageDTO{
		ID:             msg.ID.Hex(),
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		MsgType:        msg.MsgType,
		Content:        msg.Content,
		SystemAction:   msg.SystemAction,
		IsRead:         msg.IsRead,
		ReadBy:         make([]dto.ReadReceiptDTO, 0, len(msg.ReadBy)),
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Image != nil {
		msgDTO.Image = &dto.ImagePayloadDTO{URL: msg.Image.URL, Caption: msg.Image.Caption}
	}
	if msg.Location != nil {
		msgDTO.Location = &dto.LocationPayloadDTO{Lat: msg.Location.Lat, Lng: msg.Location.Lng, Address: msg.Location.Address}
	}
	for _, r := range msg.ReadBy {
		msgDTO.ReadBy = append(msgDTO.ReadBy, dto.ReadReceiptDTO{UserID: r.UserID, ReadAt: r.ReadAt})
	}
	return msgDTO
}
