package service

import (
	"Milestone/internal/api/dto"
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/redis"
	"Milestone/internal/pkg/security"
	"Milestone/internal/repository"
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	return NewUserService(repository.NewUserRepo(newTestDB(t)))
}

func newTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	prev := redis.Rdb
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redis.Rdb = prev })
	return mr
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterReq{
		Username: "alice",
		Password: "secret123",
		Name:     "Alice",
		Lastname: "Doe",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token issued on register")
	}
	if resp.User.Username != "alice" || resp.User.Name != "Alice" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}

	claims, err := security.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("expected claims for user %d, got %d", resp.User.ID, claims.UserID)
	}

	login, err := svc.Login(ctx, &dto.LoginReq{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatalf("expected same user, got %d and %d", resp.User.ID, login.User.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	req := &dto.RegisterReq{Username: "alice", Password: "secret123", Name: "Alice"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, req); !errors.Is(err, ErrUserExist) {
		t.Fatalf("expected ErrUserExist, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterReq{Username: "alice", Password: "secret123", Name: "Alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, &dto.LoginReq{Username: "nobody", Password: "secret123"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginReq{Username: "alice", Password: "wrong-pass"}); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("expected ErrPasswordIncorrect, got %v", err)
	}
}

func TestLogoutBlacklistsToken(t *testing.T) {
	svc := newUserService(t)
	mr := newTestRedis(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterReq{Username: "alice", Password: "secret123", Name: "Alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err = svc.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	signature, err := security.ExtractSignature(resp.Token)
	if err != nil {
		t.Fatalf("extract signature: %v", err)
	}
	if !mr.Exists(consts.TokenBlacklistKey + signature) {
		t.Fatal("expected token signature blacklisted")
	}
	ttl := mr.TTL(consts.TokenBlacklistKey + signature)
	if ttl <= 0 || ttl > security.JWTExpirationTime {
		t.Fatalf("unexpected blacklist ttl: %v", ttl)
	}

	if err = svc.Logout(ctx, "malformed"); !errors.Is(err, ErrParamInvalid) {
		t.Fatalf("expected ErrParamInvalid, got %v", err)
	}
}

func TestUserInfoAndPushyToken(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewUserRepo(db)
	svc := NewUserService(repo)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterReq{Username: "alice", Password: "secret123", Name: "Alice", PushyToken: "tok-1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	info, err := svc.GetUserInfo(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("get user info: %v", err)
	}
	if info.Username != "alice" || info.Name != "Alice" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err = svc.GetUserInfo(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err = svc.UpdatePushyToken(ctx, resp.User.ID, "tok-2"); err != nil {
		t.Fatalf("update pushy token: %v", err)
	}
	user, err := repo.GetUserById(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.PushyToken == nil || *user.PushyToken != "tok-2" {
		t.Fatalf("expected pushy token updated, got %v", user.PushyToken)
	}
}
