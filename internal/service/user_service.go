package service

import (
	"Milestone/internal/api/dto"
	"Milestone/internal/model"
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/redis"
	"Milestone/internal/pkg/security"
	"Milestone/internal/repository"
	"context"
	log "log/slog"

	"github.com/jinzhu/copier"
)

// UserService 用户服务接口定义
type UserService interface {
	Register(ctx context.Context, req *dto.RegisterReq) (*dto.LoginResp, error)
	Login(ctx context.Context, req *dto.LoginReq) (*dto.LoginResp, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	UpdatePushyToken(ctx context.Context, userID uint64, token string) error
}

type userServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &userServiceImpl{userRepo: userRepo}
}

// Register 注册用户并直接签发 Token
func (s *userServiceImpl) Register(ctx context.Context, req *dto.RegisterReq) (*dto.LoginResp, error) {
	existing, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExist
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: &req.Username,
		Password: &hashed,
		Name:     req.Name,
		Lastname: req.Lastname,
	}
	if req.PushyToken != "" {
		user.PushyToken = &req.PushyToken
	}

	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "用户注册成功", "userID", user.ID, "username", req.Username)
	return s.buildLoginResp(user)
}

// Login 用户名密码登录
func (s *userServiceImpl) Login(ctx context.Context, req *dto.LoginReq) (*dto.LoginResp, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == nil {
		return nil, ErrUserNotFound
	}

	if err = security.CheckPasswordHash(req.Password, *user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	return s.buildLoginResp(user)
}

// Logout 将 Token 签名拉黑到过期
func (s *userServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return ErrParamInvalid
	}
	return redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, "1", security.JWTExpirationTime)
}

// GetUserInfo 获取用户信息
func (s *userServiceImpl) GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	res := &dto.UserDTO{}
	if err = copier.Copy(res, user); err != nil {
		return nil, err
	}
	if user.Username != nil {
		res.Username = *user.Username
	}
	return res, nil
}

// UpdatePushyToken 更新设备推送凭证
func (s *userServiceImpl) UpdatePushyToken(ctx context.Context, userID uint64, token string) error {
	return s.userRepo.UpdatePushyToken(ctx, userID, token)
}

func (s *userServiceImpl) buildLoginResp(user *model.User) (*dto.LoginResp, error) {
	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	res := &dto.LoginResp{Token: token}
	if err = copier.Copy(&res.User, user); err != nil {
		return nil, err
	}
	if user.Username != nil {
		res.User.Username = *user.Username
	}
	return res, nil
}
