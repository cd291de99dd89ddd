package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type chatFixture struct {
	svc      ChatService
	convRepo *fakeConvRepo
	msgRepo  *fakeMsgRepo
	itemRepo *fakeItemRepo
	userRepo *fakeUserRepo
	item     *model.Item
}

// 用户 1、2、3，物品归属用户 2
func newChatFixture() *chatFixture {
	userRepo := newFakeUserRepo()
	userRepo.put(&model.User{Nickname: "alice"})
	userRepo.put(&model.User{Nickname: "bob"})
	userRepo.put(&model.User{Nickname: "carol"})

	itemRepo := newFakeItemRepo()
	item := itemRepo.put(&model.Item{UserID: 2, Title: "黑色钱包", Type: 2, Category: "accessories"})

	convRepo := newFakeConvRepo()
	msgRepo := &fakeMsgRepo{}

	return &chatFixture{
		svc:      NewChatService(convRepo, msgRepo, itemRepo, userRepo),
		convRepo: convRepo,
		msgRepo:  msgRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		item:     item,
	}
}

func TestPeerKey(t *testing.T) {
	if peerKey(3, 9) != "3_9" {
		t.Fatalf("peerKey(3, 9) = %q, want %q", peerKey(3, 9), "3_9")
	}
	if peerKey(9, 3) != peerKey(3, 9) {
		t.Fatalf("peerKey should not depend on argument order")
	}

	if got := peerFromKey("3_9", 3); got != 9 {
		t.Fatalf("peerFromKey(3_9, 3) = %d, want 9", got)
	}
	if got := peerFromKey("3_9", 9); got != 3 {
		t.Fatalf("peerFromKey(3_9, 9) = %d, want 3", got)
	}
	if got := peerFromKey("broken", 1); got != 0 {
		t.Fatalf("peerFromKey on malformed key = %d, want 0", got)
	}
}

func TestFindOrCreateRejectsSelf(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.FindOrCreate(context.Background(), 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 1})
	if !errors.Is(err, ErrChatSelf) {
		t.Fatalf("self chat error = %v, want ErrChatSelf", err)
	}
}

func TestFindOrCreateMissingItemOrPeer(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	_, err := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: 999, PeerID: 2})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("missing item error = %v, want ErrItemNotFound", err)
	}

	_, err = f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 999})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing peer error = %v, want ErrUserNotFound", err)
	}
}

func TestFindOrCreateIsIdempotentAcrossBothSides(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	first, err := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if first.ItemTitle != f.item.Title {
		t.Fatalf("ItemTitle = %q, want %q", first.ItemTitle, f.item.Title)
	}
	if first.Peer.ID != 2 {
		t.Fatalf("Peer.ID = %d, want 2", first.Peer.ID)
	}

	// 对端反向发起，应复用同一个会话
	second, err := f.svc.FindOrCreate(ctx, 2, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 1})
	if err != nil {
		t.Fatalf("FindOrCreate from peer failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("conversation IDs differ: %d vs %d", first.ID, second.ID)
	}
	if second.Peer.ID != 1 {
		t.Fatalf("Peer.ID from other side = %d, want 1", second.Peer.ID)
	}
	if len(f.convRepo.convs) != 1 {
		t.Fatalf("conversation count = %d, want 1", len(f.convRepo.convs))
	}

	members, _ := f.convRepo.GetMembers(ctx, first.ID)
	if len(members) != 2 {
		t.Fatalf("member count = %d, want 2", len(members))
	}
}

func TestSendMessageValidatesPayload(t *testing.T) {
	cases := []struct {
		name   string
		msgDTO *dto.SendMessageDTO
		ok     bool
	}{
		{"text", &dto.SendMessageDTO{MsgType: 1, Content: "你好"}, true},
		{"empty text", &dto.SendMessageDTO{MsgType: 1, Content: "   "}, false},
		{"text with image payload", &dto.SendMessageDTO{MsgType: 1, Content: "hi", Image: &dto.ImagePayloadDTO{URL: "x"}}, false},
		{"image", &dto.SendMessageDTO{MsgType: 2, Image: &dto.ImagePayloadDTO{URL: "items/a"}}, true},
		{"image without payload", &dto.SendMessageDTO{MsgType: 2}, false},
		{"location", &dto.SendMessageDTO{MsgType: 3, Location: &dto.LocationPayloadDTO{Lat: 1, Lng: 2}}, true},
		{"location with image", &dto.SendMessageDTO{MsgType: 3, Location: &dto.LocationPayloadDTO{}, Image: &dto.ImagePayloadDTO{}}, false},
		{"unknown type", &dto.SendMessageDTO{MsgType: 9, Content: "x"}, false},
	}

	for _, c := range cases {
		_, err := buildMessage(1, 1, c.msgDTO)
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrMsgPayloadMismatch) {
			t.Fatalf("%s: error = %v, want ErrMsgPayloadMismatch", c.name, err)
		}
	}
}

func TestSendMessageUpdatesPreviewAndUnread(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	msg, err := f.svc.SendMessage(ctx, 1, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: "在地铁站捡到的"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.SenderID != 1 || msg.Content != "在地铁站捡到的" {
		t.Fatalf("unexpected message DTO: %+v", msg)
	}

	stored := f.convRepo.convs[conv.ID]
	if stored.LastMsgContent != "在地铁站捡到的" || stored.LastSenderID != 1 {
		t.Fatalf("preview not updated: %+v", stored)
	}

	// 只有对端未读数加一
	for _, m := range f.convRepo.members[conv.ID] {
		want := 0
		if m.UserID == 2 {
			want = 1
		}
		if m.UnreadCount != want {
			t.Fatalf("user %d unread = %d, want %d", m.UserID, m.UnreadCount, want)
		}
	}

	// 图片消息摘要不泄漏内容
	if _, err := f.svc.SendMessage(ctx, 1, conv.ID, &dto.SendMessageDTO{MsgType: 2, Image: &dto.ImagePayloadDTO{URL: "items/p"}}); err != nil {
		t.Fatalf("send image failed: %v", err)
	}
	if f.convRepo.convs[conv.ID].LastMsgContent != "[图片]" {
		t.Fatalf("image preview = %q, want [图片]", f.convRepo.convs[conv.ID].LastMsgContent)
	}
}

// 预览截断不能落在多字节字符中间
func TestPreviewKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("钱", 120)
	preview := textPreview(long)
	if !utf8.ValidString(preview) {
		t.Fatalf("preview is not valid UTF-8: %q", preview)
	}
	if utf8.RuneCountInString(preview) != 100 {
		t.Fatalf("preview rune count = %d, want 100", utf8.RuneCountInString(preview))
	}

	short := "在地铁站捡到的"
	if textPreview(short) != short {
		t.Fatalf("short content should pass through unchanged")
	}

	// 混合内容同样按字符截断
	mixed := strings.Repeat("a钱", 80)
	if !utf8.ValidString(textPreview(mixed)) {
		t.Fatalf("mixed preview is not valid UTF-8")
	}

	f := newChatFixture()
	ctx := context.Background()
	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	if _, err := f.svc.SendMessage(ctx, 1, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: long}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	stored := f.convRepo.convs[conv.ID].LastMsgContent
	if !utf8.ValidString(stored) {
		t.Fatalf("stored preview is not valid UTF-8: %q", stored)
	}
	if utf8.RuneCountInString(stored) != 100 {
		t.Fatalf("stored preview rune count = %d, want 100", utf8.RuneCountInString(stored))
	}
}

// 开场白随建会话一起发出
func TestFindOrCreateSeedsFirstMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, err := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{
		ItemID:  f.item.ID,
		PeerID:  2,
		Message: " 你好，这个钱包是我的 ",
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	if len(f.msgRepo.messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(f.msgRepo.messages))
	}
	first := f.msgRepo.messages[0]
	if first.SenderID != 1 || first.Content != "你好，这个钱包是我的" {
		t.Fatalf("first message = %+v", first)
	}
	if conv.LastMsgContent != "你好，这个钱包是我的" {
		t.Fatalf("LastMsgContent = %q", conv.LastMsgContent)
	}

	// 对端未读数算上开场白
	total, err := f.svc.UnreadTotal(ctx, 2)
	if err != nil || total != 1 {
		t.Fatalf("UnreadTotal = %d (%v), want 1", total, err)
	}

	// 空白开场白不产生消息
	f2 := newChatFixture()
	if _, err := f2.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f2.item.ID, PeerID: 2, Message: "   "}); err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if len(f2.msgRepo.messages) != 0 {
		t.Fatalf("blank opener created %d messages, want 0", len(f2.msgRepo.messages))
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})

	_, err := f.svc.SendMessage(ctx, 3, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: "hi"})
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider send error = %v, want ErrNotParticipant", err)
	}

	_, err = f.svc.SendMessage(ctx, 1, 999, &dto.SendMessageDTO{MsgType: 1, Content: "hi"})
	if !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("unknown conv error = %v, want ErrChatNotFound", err)
	}
}

func TestListMessagesMarksPageAsRead(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	for i := 0; i < 3; i++ {
		if _, err := f.svc.SendMessage(ctx, 1, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: "msg"}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	msgs, pagination, err := f.svc.ListMessages(ctx, 2, conv.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 || pagination.Total != 3 {
		t.Fatalf("got %d messages total %d, want 3/3", len(msgs), pagination.Total)
	}

	// 拉取即已读：权威计数归零，缓存被校准
	count, _ := f.msgRepo.CountUnread(ctx, conv.ID, 2)
	if count != 0 {
		t.Fatalf("authoritative unread = %d, want 0", count)
	}
	for _, m := range f.convRepo.members[conv.ID] {
		if m.UserID == 2 && m.UnreadCount != 0 {
			t.Fatalf("cached unread = %d, want 0", m.UnreadCount)
		}
	}

	// 发送方视角不产生回执变化
	if _, _, err := f.svc.ListMessages(ctx, 1, conv.ID, 1, 20); err != nil {
		t.Fatalf("sender ListMessages failed: %v", err)
	}
}

func TestMarkChatReadClearsBothStores(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	for i := 0; i < 5; i++ {
		if _, err := f.svc.SendMessage(ctx, 1, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: "msg"}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	total, err := f.svc.UnreadTotal(ctx, 2)
	if err != nil || total != 5 {
		t.Fatalf("UnreadTotal = %d (%v), want 5", total, err)
	}

	if err := f.svc.MarkChatRead(ctx, 2, conv.ID); err != nil {
		t.Fatalf("MarkChatRead failed: %v", err)
	}

	count, _ := f.msgRepo.CountUnread(ctx, conv.ID, 2)
	if count != 0 {
		t.Fatalf("authoritative unread after mark = %d, want 0", count)
	}
	total, _ = f.svc.UnreadTotal(ctx, 2)
	if total != 0 {
		t.Fatalf("UnreadTotal after mark = %d, want 0", total)
	}
}

func TestArchiveConversationHidesIt(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})

	if err := f.svc.ArchiveConversation(ctx, 3, conv.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider archive error = %v, want ErrNotParticipant", err)
	}

	if err := f.svc.ArchiveConversation(ctx, 1, conv.ID); err != nil {
		t.Fatalf("ArchiveConversation failed: %v", err)
	}

	convs, err := f.svc.GetConversations(ctx, 1)
	if err != nil {
		t.Fatalf("GetConversations failed: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("archived conversation still listed: %d", len(convs))
	}
}

func TestGetConversationsCarriesPeerAndItem(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conv, _ := f.svc.FindOrCreate(ctx, 1, &dto.StartChatDTO{ItemID: f.item.ID, PeerID: 2})
	if _, err := f.svc.SendMessage(ctx, 2, conv.ID, &dto.SendMessageDTO{MsgType: 1, Content: "是我的"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	convs, err := f.svc.GetConversations(ctx, 1)
	if err != nil {
		t.Fatalf("GetConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("conversation count = %d, want 1", len(convs))
	}
	got := convs[0]
	if got.Peer.ID != 2 || got.Peer.Nickname != "bob" {
		t.Fatalf("peer = %+v, want bob(2)", got.Peer)
	}
	if got.ItemTitle != f.item.Title {
		t.Fatalf("ItemTitle = %q, want %q", got.ItemTitle, f.item.Title)
	}
	if got.UnreadCount != 1 {
		t.Fatalf("UnreadCount = %d, want 1", got.UnreadCount)
	}
	if got.LastMsgContent != "是我的" {
		t.Fatalf("LastMsgContent = %q", got.LastMsgContent)
	}
}
