package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/security"
	"context"
	"errors"
	"testing"
)

func newUserFixture() (UserService, *fakeUserRepo, *fakeItemRepo) {
	userRepo := newFakeUserRepo()
	itemRepo := newFakeItemRepo()
	return NewUserService(userRepo, itemRepo), userRepo, itemRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	regDTO := &dto.RegisterDTO{Email: "alice@example.com", Password: "secret123", Nickname: "alice"}
	if err := svc.Register(ctx, regDTO); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := svc.Register(ctx, regDTO); !errors.Is(err, ErrUserExist) {
		t.Fatalf("duplicate register error = %v, want ErrUserExist", err)
	}

	token, err := svc.Login(ctx, &dto.CredentialDTO{Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != 1 {
		t.Fatalf("claims.UserID = %d, want 1", claims.UserID)
	}

	if _, err := svc.Login(ctx, &dto.CredentialDTO{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("wrong password error = %v, want ErrPasswordIncorrect", err)
	}
	if _, err := svc.Login(ctx, &dto.CredentialDTO{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown email error = %v, want ErrUserNotFound", err)
	}
}

func TestLoginRejectsBannedUser(t *testing.T) {
	svc, userRepo, _ := newUserFixture()
	ctx := context.Background()

	hash, _ := security.HashPassword("secret123")
	email := "banned@example.com"
	userRepo.put(&model.User{Email: &email, Password: &hash, Nickname: "banned", IsBan: true})

	_, err := svc.Login(ctx, &dto.CredentialDTO{Email: email, Password: "secret123"})
	if !errors.Is(err, ErrUserBan) {
		t.Fatalf("banned login error = %v, want ErrUserBan", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.GetProfile(context.Background(), 42)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, userRepo, _ := newUserFixture()
	ctx := context.Background()

	hash, _ := security.HashPassword("oldpass123")
	user := userRepo.put(&model.User{Nickname: "alice", Password: &hash})

	err := svc.UpdatePassword(ctx, user.ID, &dto.ChangePasswordDTO{OldPassword: "nope", NewPassword: "newpass123"})
	if !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("wrong old password error = %v, want ErrPasswordIncorrect", err)
	}

	if err := svc.UpdatePassword(ctx, user.ID, &dto.ChangePasswordDTO{OldPassword: "oldpass123", NewPassword: "newpass123"}); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if err := security.CheckPasswordHash("newpass123", *userRepo.users[user.ID].Password); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

// 每 100 分升一级，跨越等级线补发等级徽章
func TestAwardPointsLevelsAndBadges(t *testing.T) {
	svc, userRepo, _ := newUserFixture()
	ctx := context.Background()

	user := userRepo.put(&model.User{Nickname: "alice", Points: 95})

	if err := svc.AwardPoints(ctx, user.ID, 10, "post_item"); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}
	if user.Points != 105 {
		t.Fatalf("points = %d, want 105", user.Points)
	}
	if user.Level() != 2 {
		t.Fatalf("level = %d, want 2", user.Level())
	}
	if len(userRepo.badges) != 1 || userRepo.badges[0].Name != "Level 2" {
		t.Fatalf("badges = %+v, want single Level 2", userRepo.badges)
	}

	// 一次加分跨多级，逐级补发
	if err := svc.AwardPoints(ctx, user.ID, 250, "resolve_item"); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}
	if user.Points != 355 || user.Level() != 4 {
		t.Fatalf("points/level = %d/%d, want 355/4", user.Points, user.Level())
	}
	names := make([]string, 0, len(userRepo.badges))
	for _, b := range userRepo.badges {
		names = append(names, b.Name)
	}
	if len(names) != 3 || names[1] != "Level 3" || names[2] != "Level 4" {
		t.Fatalf("badges = %v, want [Level 2 Level 3 Level 4]", names)
	}

	// 未跨线不发徽章
	if err := svc.AwardPoints(ctx, user.ID, 10, "post_item"); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}
	if len(userRepo.badges) != 3 {
		t.Fatalf("badge count = %d, want 3", len(userRepo.badges))
	}
}

// Redis 不可用时全量榜回源 DB
func TestGetLeaderboardFallsBackToDB(t *testing.T) {
	svc, userRepo, _ := newUserFixture()
	ctx := context.Background()

	userRepo.put(&model.User{Nickname: "alice", Points: 300})
	userRepo.put(&model.User{Nickname: "bob", Points: 200})
	userRepo.put(&model.User{Nickname: "carol", Points: 100})
	userRepo.put(&model.User{Nickname: "cheater", Points: 999, IsBan: true})

	entries, err := svc.GetLeaderboard(ctx, "all", 10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}
	if entries[0].Nickname != "alice" || entries[0].Points != 300 || entries[0].Rank != 1 {
		t.Fatalf("top entry = %+v", entries[0])
	}
	if entries[0].Level != 4 {
		t.Fatalf("top level = %d, want 4", entries[0].Level)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Fatalf("rank at %d = %d, want %d", i, e.Rank, i+1)
		}
	}
}

func TestGetLeaderboardPeriodUsesPointsLog(t *testing.T) {
	svc, userRepo, _ := newUserFixture()
	ctx := context.Background()

	alice := userRepo.put(&model.User{Nickname: "alice", Points: 500})
	bob := userRepo.put(&model.User{Nickname: "bob", Points: 50})

	// 本周流水：bob 比 alice 活跃
	if _, err := userRepo.AddPoints(ctx, bob.ID, 50, "resolve_item"); err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}
	if _, err := userRepo.AddPoints(ctx, alice.ID, 10, "post_item"); err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}

	entries, err := svc.GetLeaderboard(ctx, "week", 10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(entries))
	}
	if entries[0].UserID != bob.ID || entries[0].Points != 50 {
		t.Fatalf("top entry = %+v, want bob with 50", entries[0])
	}
	if entries[1].UserID != alice.ID || entries[1].Points != 10 {
		t.Fatalf("second entry = %+v, want alice with 10", entries[1])
	}
}

func TestGetCommunityStats(t *testing.T) {
	svc, userRepo, itemRepo := newUserFixture()
	ctx := context.Background()

	userRepo.put(&model.User{Nickname: "alice"})
	userRepo.put(&model.User{Nickname: "bob"})
	itemRepo.put(&model.Item{UserID: 1, Status: 0})
	itemRepo.put(&model.Item{UserID: 1, Status: 1})
	itemRepo.put(&model.Item{UserID: 2, Status: 0})
	itemRepo.matches = append(itemRepo.matches, &model.ItemMatch{ItemID: 1, MatchedItemID: 3})

	stats, err := svc.GetCommunityStats(ctx)
	if err != nil {
		t.Fatalf("GetCommunityStats failed: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalItems != 3 || stats.ActiveItems != 2 || stats.ResolvedItems != 1 || stats.TotalMatches != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
