package service

import (
	"Reclaim/internal/api/config"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/es"
	"Reclaim/internal/pkg/kafka"
	"Reclaim/internal/pkg/mongo"
	redispkg "Reclaim/internal/pkg/redis"
	"Reclaim/internal/repository"
	"context"
	"os"
	"sort"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// TestMain 给全局依赖一个可用的兜底：Redis 指向不可达地址，
// 相关调用快速失败走降级路径，而不是空指针崩溃。
func TestMain(m *testing.M) {
	config.Cfg = &config.Config{}
	redispkg.Rdb = goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	os.Exit(m.Run())
}

// ---- ItemRepo fake ----

type fakeItemRepo struct {
	items   map[uint64]*model.Item
	matches []*model.ItemMatch
	nextID  uint64
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uint64]*model.Item), nextID: 1}
}

func (f *fakeItemRepo) put(item *model.Item) *model.Item {
	if item.ID == 0 {
		item.ID = f.nextID
		f.nextID++
	} else if item.ID >= f.nextID {
		f.nextID = item.ID + 1
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeItemRepo) CreateItem(_ context.Context, item *model.Item, images []*model.ItemImage) error {
	f.put(item)
	for _, img := range images {
		img.ItemID = item.ID
	}
	return nil
}

func (f *fakeItemRepo) GetItem(_ context.Context, id uint64) (*model.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeItemRepo) GetItemsByIDs(_ context.Context, ids []uint64) ([]*model.Item, error) {
	out := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) UpdateItem(_ context.Context, item *model.Item) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemRepo) DeleteItem(_ context.Context, id uint64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeItemRepo) ListItems(_ context.Context, q *repository.ItemQuery) ([]*model.Item, int64, error) {
	var out []*model.Item
	for _, item := range f.items {
		if item.Status != 0 {
			continue
		}
		if q.Type != 0 && item.Type != q.Type {
			continue
		}
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeItemRepo) FindNearby(_ context.Context, _, _, _ float64, limit int) ([]*model.Item, error) {
	var out []*model.Item
	for _, item := range f.items {
		if item.Status == 0 {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeItemRepo) FindCandidates(_ context.Context, itemType int8, category string, limit int) ([]*model.Item, error) {
	var out []*model.Item
	for _, item := range f.items {
		if item.Status == 0 && item.Type == itemType && item.Category == category {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeItemRepo) IncrViews(_ context.Context, id uint64) error {
	if item, ok := f.items[id]; ok {
		item.Views++
	}
	return nil
}

func (f *fakeItemRepo) ResolveItem(_ context.Context, id uint64, resolvedBy uint64, at time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Status = 1
	item.IsResolved = true
	item.ResolvedAt = &at
	item.ResolvedBy = &resolvedBy
	return nil
}

func (f *fakeItemRepo) ExpireOverdue(_ context.Context, now time.Time) ([]uint64, error) {
	var ids []uint64
	for _, item := range f.items {
		if item.Status == 0 && item.ExpiresAt.Before(now) {
			item.Status = 2
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

func (f *fakeItemRepo) AppendMatches(_ context.Context, matches []*model.ItemMatch) error {
	for _, m := range matches {
		dup := false
		for _, old := range f.matches {
			if old.ItemID == m.ItemID && old.MatchedItemID == m.MatchedItemID {
				dup = true
				break
			}
		}
		if !dup {
			f.matches = append(f.matches, m)
		}
	}
	return nil
}

func (f *fakeItemRepo) GetMatches(_ context.Context, itemID uint64) ([]*model.ItemMatch, error) {
	var out []*model.ItemMatch
	for _, m := range f.matches {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) CountItems(_ context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeItemRepo) CountByStatus(_ context.Context, status int8) (int64, error) {
	var n int64
	for _, item := range f.items {
		if item.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeItemRepo) CountMatches(_ context.Context) (int64, error) {
	return int64(len(f.matches)), nil
}

// ---- UserRepo fake ----

type fakeUserRepo struct {
	users  map[uint64]*model.User
	logs   []*model.PointsLog
	badges []*model.UserBadge
	nextID uint64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) put(u *model.User) *model.User {
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	} else if u.ID >= f.nextID {
		f.nextID = u.ID + 1
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.put(user)
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, id uint64, updates map[string]interface{}) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["nickname"]; ok {
		u.Nickname = v.(string)
	}
	if v, ok := updates["password"]; ok {
		pw := v.(string)
		u.Password = &pw
	}
	if v, ok := updates["avatar_url"]; ok {
		u.AvatarURL = v.(string)
	}
	return nil
}

func (f *fakeUserRepo) AddPoints(_ context.Context, userID uint64, points int, reason string) (int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	u.Points += points
	f.logs = append(f.logs, &model.PointsLog{UserID: userID, Points: points, Reason: reason, CreatedAt: time.Now()})
	return u.Points, nil
}

func (f *fakeUserRepo) AddBadge(_ context.Context, badge *model.UserBadge) error {
	for _, b := range f.badges {
		if b.UserID == badge.UserID && b.Name == badge.Name {
			return nil
		}
	}
	f.badges = append(f.badges, badge)
	if u, ok := f.users[badge.UserID]; ok {
		u.Badges = append(u.Badges, *badge)
	}
	return nil
}

func (f *fakeUserRepo) IncrItemsPosted(_ context.Context, userID uint64) error {
	if u, ok := f.users[userID]; ok {
		u.ItemsPosted++
	}
	return nil
}

func (f *fakeUserRepo) IncrItemsReturned(_ context.Context, userID uint64) error {
	if u, ok := f.users[userID]; ok {
		u.ItemsReturned++
	}
	return nil
}

func (f *fakeUserRepo) GetTopByPoints(_ context.Context, limit int) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if !u.IsDelete && !u.IsBan {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) SumPointsSince(_ context.Context, since time.Time, limit int) ([]*repository.LeaderboardRow, error) {
	sums := make(map[uint64]int)
	for _, l := range f.logs {
		if !l.CreatedAt.Before(since) {
			sums[l.UserID] += l.Points
		}
	}
	var rows []*repository.LeaderboardRow
	for id, pts := range sums {
		rows = append(rows, &repository.LeaderboardRow{UserID: id, Points: pts})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Points > rows[j].Points })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeUserRepo) GetUsersByIDs(_ context.Context, ids []uint64) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) ListUserIDs(_ context.Context) ([]uint64, error) {
	var ids []uint64
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

// ---- ConversationRepo fake ----

type fakeConvRepo struct {
	convs   map[uint64]*model.Conversation
	members map[uint64][]*model.ConversationMember
	nextID  uint64
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		convs:   make(map[uint64]*model.Conversation),
		members: make(map[uint64][]*model.ConversationMember),
		nextID:  1,
	}
}

func (f *fakeConvRepo) CreateConversation(_ context.Context, conv *model.Conversation, members []*model.ConversationMember) error {
	for _, old := range f.convs {
		if old.PeerKey == conv.PeerKey && old.ItemID == conv.ItemID {
			return gorm.ErrDuplicatedKey
		}
	}
	conv.ID = f.nextID
	f.nextID++
	f.convs[conv.ID] = conv
	for _, m := range members {
		m.ConversationID = conv.ID
		f.members[conv.ID] = append(f.members[conv.ID], m)
	}
	return nil
}

func (f *fakeConvRepo) GetConversation(_ context.Context, convID uint64) (*model.Conversation, error) {
	conv, ok := f.convs[convID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (f *fakeConvRepo) GetByPeerKeyItem(_ context.Context, peerKey string, itemID uint64) (*model.Conversation, error) {
	for _, conv := range f.convs {
		if conv.PeerKey == peerKey && conv.ItemID == itemID {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConvRepo) IsMember(_ context.Context, convID uint64, userID uint64) (bool, error) {
	for _, m := range f.members[convID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConvRepo) GetMembers(_ context.Context, convID uint64) ([]*model.ConversationMember, error) {
	return f.members[convID], nil
}

func (f *fakeConvRepo) TouchLastMessage(_ context.Context, convID uint64, content string, msgType int8, senderID uint64) error {
	conv, ok := f.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	conv.LastMsgContent = content
	conv.LastMsgType = msgType
	conv.LastSenderID = senderID
	conv.LastMessageAt = time.Now()
	return nil
}

func (f *fakeConvRepo) IncrUnreadExcept(_ context.Context, convID uint64, exceptUserID uint64) error {
	for _, m := range f.members[convID] {
		if m.UserID != exceptUserID {
			m.UnreadCount++
		}
	}
	return nil
}

func (f *fakeConvRepo) ResetUnread(_ context.Context, convID uint64, userID uint64) error {
	for _, m := range f.members[convID] {
		if m.UserID == userID {
			m.UnreadCount = 0
			now := time.Now()
			m.LastReadAt = &now
		}
	}
	return nil
}

func (f *fakeConvRepo) SetUnread(_ context.Context, convID uint64, userID uint64, count int) error {
	for _, m := range f.members[convID] {
		if m.UserID == userID {
			m.UnreadCount = count
		}
	}
	return nil
}

func (f *fakeConvRepo) GetUserConversations(_ context.Context, userID uint64) ([]*model.ConversationMember, error) {
	var out []*model.ConversationMember
	for convID, members := range f.members {
		conv := f.convs[convID]
		if conv == nil || !conv.IsActive {
			continue
		}
		for _, m := range members {
			if m.UserID == userID {
				withConv := *m
				withConv.Conversation = *conv
				out = append(out, &withConv)
			}
		}
	}
	return out, nil
}

func (f *fakeConvRepo) GetUserConversationIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	members, _ := f.GetUserConversations(ctx, userID)
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ConversationID)
	}
	return ids, nil
}

func (f *fakeConvRepo) Archive(_ context.Context, convID uint64) error {
	if conv, ok := f.convs[convID]; ok {
		conv.IsActive = false
	}
	return nil
}

func (f *fakeConvRepo) ListActiveIDs(_ context.Context) ([]uint64, error) {
	var ids []uint64
	for id, conv := range f.convs {
		if conv.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ---- MessageRepo fake ----

type fakeMsgRepo struct {
	messages []*mongo.Message
}

func (f *fakeMsgRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []mongo.ReadReceipt{}
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMsgRepo) GetPage(_ context.Context, convID uint64, page, pageSize int) ([]*mongo.Message, int64, error) {
	var all []*mongo.Message
	for _, m := range f.messages {
		if m.ConversationID == convID {
			all = append(all, m)
		}
	}
	// 最新的在前
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*mongo.Message{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeMsgRepo) MarkReadByUser(_ context.Context, convID uint64, userID uint64, ids []primitive.ObjectID) error {
	idSet := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	for _, m := range f.messages {
		if m.ConversationID != convID || m.SenderID == userID || !idSet[m.ID] {
			continue
		}
		f.addReceipt(m, userID)
	}
	return nil
}

func (f *fakeMsgRepo) MarkAllReadByUser(_ context.Context, convID uint64, userID uint64) error {
	for _, m := range f.messages {
		if m.ConversationID != convID || m.SenderID == userID {
			continue
		}
		f.addReceipt(m, userID)
	}
	return nil
}

func (f *fakeMsgRepo) addReceipt(m *mongo.Message, userID uint64) {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return
		}
	}
	now := time.Now()
	m.ReadBy = append(m.ReadBy, mongo.ReadReceipt{UserID: userID, ReadAt: now})
	m.IsRead = true
	m.ReadAt = &now
}

func (f *fakeMsgRepo) CountUnread(_ context.Context, convID uint64, userID uint64) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.ConversationID != convID || m.SenderID == userID {
			continue
		}
		read := false
		for _, r := range m.ReadBy {
			if r.UserID == userID {
				read = true
				break
			}
		}
		if !read {
			n++
		}
	}
	return n, nil
}

// ---- 轻量协作方 fake ----

type fakeUserService struct {
	UserService
	awards []struct {
		UserID uint64
		Points int
		Reason string
	}
	posted   []uint64
	returned []uint64
}

func (f *fakeUserService) AwardPoints(_ context.Context, userID uint64, points int, reason string) error {
	f.awards = append(f.awards, struct {
		UserID uint64
		Points int
		Reason string
	}{userID, points, reason})
	return nil
}

func (f *fakeUserService) RecordItemPosted(_ context.Context, userID uint64) error {
	f.posted = append(f.posted, userID)
	return nil
}

func (f *fakeUserService) RecordItemReturned(_ context.Context, userID uint64) error {
	f.returned = append(f.returned, userID)
	return nil
}

type fakeMatchService struct {
	MatchService
	seeded    []uint64
	seedCount int
}

func (f *fakeMatchService) SeedMatches(_ context.Context, item *model.Item) (int, error) {
	f.seeded = append(f.seeded, item.ID)
	return f.seedCount, nil
}

type fakeGeocode struct {
	lat, lng float64
	err      error
}

func (f *fakeGeocode) Forward(context.Context, string, string, string, string) (float64, float64, error) {
	return f.lat, f.lng, f.err
}

type fakeESRepo struct {
	docs     []*es.ItemES
	indexed  []uint64
	statuses map[uint64]int8
	deleted  []uint64
}

func newFakeESRepo() *fakeESRepo {
	return &fakeESRepo{statuses: make(map[uint64]int8)}
}

func (f *fakeESRepo) SearchItems(context.Context, string, int8, string, int, int) ([]*es.ItemES, int64, error) {
	return f.docs, int64(len(f.docs)), nil
}

func (f *fakeESRepo) IndexItem(_ context.Context, item *es.ItemES) error {
	f.indexed = append(f.indexed, item.ID)
	return nil
}

func (f *fakeESRepo) UpdateStatus(_ context.Context, id uint64, status int8) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeESRepo) DeleteItem(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeViewProducer struct {
	events []*kafka.ViewEvent
}

func (f *fakeViewProducer) PublishView(_ context.Context, event *kafka.ViewEvent) {
	f.events = append(f.events, event)
}

func (f *fakeViewProducer) Close() error { return nil }
