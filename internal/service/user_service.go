package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/repository"
	"hr_vacation_go/pkg/database"
	"hr_vacation_go/pkg/hash"
	"hr_vacation_go/pkg/log"
	"hr_vacation_go/pkg/token"

	"gorm.io/gorm"
)

// 用户域哨兵错误
var (
	// ErrInvalidCredentials 用户名或密码错误（登录时统一返回，防止用户枚举）
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound 用户不存在（仅用于非登录场景）
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists 用户已存在（注册时）
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserService interface {
	Register(username, password, email, fullName string) (*model.User, error)
	Login(username, password string) (accessToken, refreshToken string, err error)
	Logout(tokenString string) error
	GetProfile(username string) (*model.User, error)
	ListUsers(offset, limit int) ([]model.User, int64, error)
}

type userService struct {
	userRepo   repository.UserRepository
	JWTManager *token.JWTManager
	audit      AuditService
}

func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager, audit AuditService) UserService {
	return &userService{
		userRepo:   userRepo,
		JWTManager: jwtManager,
		audit:      audit,
	}
}

func (s *userService) Register(username, password, email, fullName string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if username == "" || password == "" || email == "" || fullName == "" {
		return nil, ErrInvalidInput
	}

	// 1. 检查用户是否存在
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		// 查无记录是正常分支，继续注册
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	// 2. 密码进行哈希
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. 创建新用户
	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Email:    email,
		FullName: fullName,
		Role:     model.RoleUser,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}

	// 4. 用户管理类事件的审计是"尽力而为"：写失败记日志后继续，
	//    不让审计故障影响注册本身（与请假/层级变更的合规路径不同）。
	if s.audit != nil {
		if err := s.audit.Record(model.AuditActionUserCreated, model.AuditEntityUser,
			fmt.Sprintf("%d", newUser.ID), newUser.ID, newUser.Email,
			map[string]interface{}{"username": username}); err != nil {
			log.Warnf("Register: failed to write audit log for user %q: %v", username, err)
		}
	}

	return newUser, nil
}

func (s *userService) Login(username, password string) (accessToken, refreshToken string, err error) {
	if s.JWTManager == nil {
		return "", "", ErrInternal
	}
	// 1. 检查用户是否存在
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 用户不存在，返回统一的凭证错误，防止用户枚举
			return "", "", ErrInvalidCredentials
		}
		// 真正的数据库错误：记日志，对外返回通用错误
		log.Errorf("Login: failed to query user %q: %v", username, err)
		return "", "", ErrInternal
	}
	if existingUser == nil {
		return "", "", ErrInvalidCredentials
	}

	// 2. 检查密码是否正确
	if !hash.CheckPasswordHash(password, existingUser.Password) {
		// 密码错误，返回与"用户不存在"相同的错误，防止用户枚举
		return "", "", ErrInvalidCredentials
	}

	// 3. 生成JWT令牌（使用数据库中的 Username，避免大小写/规范化不一致）
	accessToken, refreshToken, err = s.JWTManager.GenerateToken(existingUser.ID, existingUser.Username, existingUser.Role)
	if err != nil {
		log.Errorf("Login: failed to generate token for user %q: %v", existingUser.Username, err)
		return "", "", ErrInternal
	}
	return accessToken, refreshToken, nil
}

// Logout 把 token 写入 Redis 黑名单，TTL 取 token 的剩余有效期。
// 与 AuthMiddleware 使用同一 key 前缀，确保"写黑名单"和"读黑名单"一致。
func (s *userService) Logout(tokenString string) error {
	if s.JWTManager == nil || database.RDB == nil {
		return ErrInternal
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ErrInvalidInput
	}

	claims, err := s.JWTManager.VerifyToken(tokenString)
	if err != nil || claims == nil || claims.ExpiresAt == nil {
		// 已过期或非法的 token 无需拉黑
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	blacklistKey := "token_blacklist:" + tokenString
	if err := database.RDB.Set(context.Background(), blacklistKey, "1", ttl).Err(); err != nil {
		log.Errorf("Logout: failed to blacklist token: %v", err)
		return ErrInternal
	}
	return nil
}

func (s *userService) GetProfile(username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Errorf("GetProfile: failed to query user %q: %v", username, err)
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) ListUsers(offset, limit int) ([]model.User, int64, error) {
	return s.userRepo.FindWithPagination(offset, limit)
}
