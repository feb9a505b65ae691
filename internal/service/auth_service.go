package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const passwordResetTTL = time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Claims is the JWT payload issued on login.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users    UserStore
	notifier Notifier
	secret   []byte
	ttl      time.Duration
	rules    config.Rules
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users UserStore, notifier Notifier, secret string, ttl time.Duration, rules config.Rules, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		notifier: notifier,
		secret:   []byte(secret),
		ttl:      ttl,
		rules:    rules,
		logger:   logger,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Code     string
	Email    string
	FullName string
	Password string
	Role     model.Role
}

// Register creates an account. New users start with the default reputation.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Email = strings.TrimSpace(in.Email)

	if in.Code == "" {
		return nil, invalidInput("code is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalidInput("invalid email %q", in.Email)
	}
	if len(in.Password) < 8 {
		return nil, invalidInput("password must be at least 8 characters")
	}
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	if !in.Role.Valid() {
		return nil, invalidInput("unknown role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Code:         in.Code,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hash),
		Role:         in.Role,
		Reputation:   s.rules.DefaultReputation,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user with this code or email already exists: %w", ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("code", user.Code),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// Login checks the credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issue(user *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate validates a token and loads its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", id)
	}
	return user, nil
}

// RequestPasswordReset sends a one-time reset token to the user. Unknown
// emails are accepted silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Info("Password reset requested for unknown email")
		return nil
	}

	reset := &model.PasswordReset{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(passwordResetTTL),
	}
	if err := s.users.CreatePasswordReset(ctx, reset); err != nil {
		return err
	}

	body := fmt.Sprintf("Use this code to reset your password: %s\nIt expires in %d minutes.",
		reset.Token, int(passwordResetTTL.Minutes()))
	if err := s.notifier.Notify(ctx, user, "Password reset", body); err != nil {
		return fmt.Errorf("send reset token: %w", err)
	}

	s.logger.Info("Password reset requested", zap.Int64("user_id", user.ID))
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return invalidInput("password must be at least 8 characters")
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrInvalidToken
	}

	reset, err := s.users.GetPasswordReset(ctx, token)
	if err != nil {
		return err
	}
	now := s.now()
	if reset == nil || !reset.IsValid(now) {
		return ErrInvalidToken
	}

	used, err := s.users.MarkPasswordResetUsed(ctx, token, now)
	if err != nil {
		return err
	}
	if !used {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, string(hash)); err != nil {
		return err
	}

	s.logger.Info("Password reset", zap.Int64("user_id", reset.UserID))
	return nil
}

// LinkTelegram attaches a Telegram chat to the account with the given code.
func (s *AuthService) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	user, err := s.users.SetTelegramChatID(ctx, code, chatID)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("chat already linked to another account: %w", ErrConflict)
		}
		return nil, err
	}
	if user == nil {
		return nil, notFound("user with code", code)
	}

	s.logger.Info("Telegram linked", zap.Int64("user_id", user.ID), zap.Int64("chat_id", chatID))
	return user, nil
}

// UserByChat returns the account linked to a Telegram chat, or nil.
func (s *AuthService) UserByChat(ctx context.Context, chatID int64) (*model.User, error) {
	return s.users.GetByTelegramChatID(ctx, chatID)
}

func (s *AuthService) ListUsers(ctx context.Context, role model.Role) ([]*model.User, error) {
	return s.users.List(ctx, role)
}
