package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Benrobo/nexusai-sub000/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrBadOTP     = errors.New("invalid or expired code")
	ErrInvalidArg = errors.New("invalid argument")
)

const otpTTL = 10 * time.Minute

// Service manages tenant accounts and email verification codes.
//
// OTP codes live in Redis only; the relational store never sees them.
type Service struct {
	repo  Repository
	cache utils.Cmdable
	clock func() time.Time
}

func NewService(repo Repository, cache utils.Cmdable) *Service {
	return &Service{repo: repo, cache: cache, clock: time.Now}
}

// SignIn upserts the account from a completed Google OAuth exchange.
func (s *Service) SignIn(ctx context.Context, email, name, avatar, googleRefreshToken string) (User, error) {
	if email == "" {
		return User{}, ErrInvalidArg
	}
	return s.repo.Upsert(ctx, User{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		Avatar:             avatar,
		GoogleRefreshToken: googleRefreshToken,
		CreatedAt:          s.clock().UTC(),
	})
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArg
	}
	return s.repo.GetByID(ctx, id)
}

// GoogleRefreshToken implements auth.RefreshTokenSource.
func (s *Service) GoogleRefreshToken(ctx context.Context, userID string) (string, string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return u.GoogleRefreshToken, u.Email, nil
}

// SendOTP generates a 6-digit code and stores it under a short TTL.
// Delivery is the caller's concern (mailer); the code is returned so the
// HTTP layer can hand it off.
func (s *Service) SendOTP(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidArg
	}
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	code, err := randomOTP()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, otpKey(userID), code, otpTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyOTP checks the code and marks the account verified on match.
// The code is single-use: it is deleted whether or not it matched.
func (s *Service) VerifyOTP(ctx context.Context, userID, code string) error {
	if userID == "" || code == "" {
		return ErrInvalidArg
	}

	stored, err := s.cache.Get(ctx, otpKey(userID)).Result()
	if err != nil {
		return ErrBadOTP
	}
	_ = s.cache.Del(ctx, otpKey(userID)).Err()

	if stored != code {
		return ErrBadOTP
	}
	return s.repo.SetVerified(ctx, userID, true)
}

func otpKey(userID string) string {
	return fmt.Sprintf("otp_%s", userID)
}

func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
