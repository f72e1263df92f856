package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkup/internal/auth"
	"linkup/internal/email"
	"linkup/internal/models"
	"linkup/internal/store"
)

var (
	ErrAccountExists   = errors.New("user already exists")
	ErrExpired         = errors.New("otp expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrInvalidCode     = errors.New("invalid otp")
)

// Service gates account creation behind email-verified possession. A
// pending registration lives in a single per-email record until it is
// verified, expires, or runs out of attempts.
type Service struct {
	store       store.Store
	mail        *email.Sender
	tokens      *auth.Manager
	logger      *zap.SugaredLogger
	expiry      time.Duration
	maxAttempts int
}

func NewService(logger *zap.SugaredLogger, st store.Store, mail *email.Sender, tokens *auth.Manager, expiry time.Duration, maxAttempts int) *Service {
	return &Service{
		store:       st,
		mail:        mail,
		tokens:      tokens,
		logger:      logger,
		expiry:      expiry,
		maxAttempts: maxAttempts,
	}
}

// Request starts a registration. It hashes the password and a fresh code,
// upserts the pending record (replacing any earlier one for the email) and
// mails the code. The mail dispatch is fire-and-forget: a delivery failure
// is logged and the pending record stays valid for verification.
func (s *Service) Request(ctx context.Context, username, emailAddr, password string) error {
	username = strings.TrimSpace(username)
	emailAddr = normalizeEmail(emailAddr)

	exists, err := s.store.UserExists(ctx, emailAddr, username)
	if err != nil {
		return err
	}
	if exists {
		return ErrAccountExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	reg := &models.OtpRegistration{
		Email:        emailAddr,
		Username:     username,
		PasswordHash: string(passwordHash),
		OtpHash:      string(codeHash),
		Attempts:     0,
		ExpiresAt:    time.Now().UTC().Add(s.expiry),
	}
	if err := s.store.UpsertOtp(ctx, reg); err != nil {
		return err
	}

	go func() {
		if err := s.mail.SendOtpEmail(emailAddr, code, s.expiry); err != nil {
			s.logger.Errorw("failed to send otp email", "email", emailAddr, "error", err)
		}
	}()

	return nil
}

// Verify checks the supplied code against the pending record and, on
// success, creates the confirmed account and returns a signed session token
// with the new profile. Expiry and attempt exhaustion are terminal: the
// record is deleted and a later verify reports not found.
func (s *Service) Verify(ctx context.Context, emailAddr, code string) (string, *models.User, error) {
	emailAddr = normalizeEmail(emailAddr)

	reg, err := s.store.GetOtp(ctx, emailAddr)
	if err != nil {
		return "", nil, err
	}

	if time.Now().UTC().After(reg.ExpiresAt) {
		if err := s.store.DeleteOtp(ctx, emailAddr); err != nil {
			s.logger.Errorw("failed to delete expired otp", "email", emailAddr, "error", err)
		}
		return "", nil, ErrExpired
	}

	if reg.Attempts >= s.maxAttempts {
		if err := s.store.DeleteOtp(ctx, emailAddr); err != nil {
			s.logger.Errorw("failed to delete exhausted otp", "email", emailAddr, "error", err)
		}
		return "", nil, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(reg.OtpHash), []byte(code)) != nil {
		if err := s.store.IncrementOtpAttempts(ctx, emailAddr); err != nil {
			return "", nil, err
		}
		return "", nil, ErrInvalidCode
	}

	// A confirmed account may have appeared since the request; the pending
	// record loses that race.
	exists, err := s.store.UserExists(ctx, emailAddr, reg.Username)
	if err != nil {
		return "", nil, err
	}
	if exists {
		if err := s.store.DeleteOtp(ctx, emailAddr); err != nil {
			s.logger.Errorw("failed to delete superseded otp", "email", emailAddr, "error", err)
		}
		return "", nil, ErrAccountExists
	}

	user := &models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
	}
	if _, err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return "", nil, ErrAccountExists
		}
		return "", nil, err
	}

	if err := s.store.DeleteOtp(ctx, emailAddr); err != nil {
		s.logger.Errorw("failed to delete verified otp", "email", emailAddr, "error", err)
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// generateCode returns a uniformly distributed fixed-width 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
