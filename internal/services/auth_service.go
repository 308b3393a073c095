package services

import (
	"context"
	"strings"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	jwtutil "github.com/Dias221467/social-network/pkg/jwt"
	"github.com/Dias221467/social-network/pkg/validation"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginInput identifies the account by email or phone number. Email wins when both are set.
type LoginInput struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// Session is the result of a successful login.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AuthService is the session authenticator. Password logins run through the
// lockout state machine; OTP logins do not.
type AuthService struct {
	store    UserStore
	hasher   PasswordHasher
	activity ActivityLogger
	cfg      CredentialConfig
	now      func() time.Time
}

// NewAuthService creates a new AuthService. activity may be nil.
func NewAuthService(store UserStore, hasher PasswordHasher, activity ActivityLogger, cfg CredentialConfig) *AuthService {
	return &AuthService{
		store:    store,
		hasher:   hasher,
		activity: activity,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *AuthService) lookup(ctx context.Context, email, phone string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if email != "" {
		user, err = s.store.GetUserByEmail(ctx, email)
	} else {
		user, err = s.store.GetUserByPhone(ctx, phone)
	}
	if err != nil {
		return nil, storeError(err, "failed to log in")
	}
	return user, nil
}

// Login authenticates with a password. A locked account is rejected without
// touching the counter; each mismatch increments it atomically, and reaching
// the limit locks the account for good.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := validation.SanitizeEmail(in.Email)
	phone := strings.TrimSpace(in.PhoneNumber)
	if normalized, ok := validation.NormalizePhone(phone, s.cfg.PhoneRegion); ok {
		phone = normalized
	}
	if email == "" && phone == "" {
		return nil, apperror.Validation("email", "email or phone number is required")
	}
	if in.Password == "" {
		return nil, apperror.Validation("password", "password is required")
	}

	user, err := s.lookup(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("userID", user.ID.Hex())

	if user.IsLocked {
		log.Warn("Login attempt on locked account")
		return nil, apperror.New(apperror.KindAccountLocked, "account is locked")
	}

	if !s.hasher.Verify(in.Password, user.HashedPassword) {
		attempts, err := s.store.IncrementFailedLogins(ctx, user.ID)
		if err != nil {
			return nil, storeError(err, "failed to record login attempt")
		}
		user.FailedLoginAttempts = attempts

		if attempts >= s.cfg.MaxFailedLogins {
			if err := s.store.UpdateUser(ctx, user.ID, map[string]interface{}{"is_locked": true}); err != nil {
				return nil, storeError(err, "failed to lock account")
			}
			user.IsLocked = true
			log.WithField("attempts", attempts).Warn("Account locked after failed logins")
			s.logActivity(ctx, user.ID, models.ActivityAccountLocked, "Account locked after too many failed logins")
			return nil, apperror.New(apperror.KindAccountLocked, "account is locked")
		}
		log.WithField("attempts", attempts).Warn("Invalid password")
		return nil, apperror.InvalidCredentials(s.cfg.MaxFailedLogins - attempts)
	}

	if err := s.store.UpdateUser(ctx, user.ID, map[string]interface{}{
		"failed_login_attempts": 0,
		"activity_status":       models.ActivityOnline,
	}); err != nil {
		return nil, storeError(err, "failed to log in")
	}
	user.FailedLoginAttempts = 0
	user.ActivityStatus = models.ActivityOnline

	log.Info("User logged in")
	return s.session(user)
}

// LoginWithOTP authenticates with a one-time code. The failed-login counter
// and the locked flag are neither consulted nor changed.
func (s *AuthService) LoginWithOTP(ctx context.Context, email, code string) (*Session, error) {
	email = validation.SanitizeEmail(email)
	if email == "" || code == "" {
		return nil, apperror.Validation("otp", "email and verification code are required")
	}

	user, err := s.lookup(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if err := checkOTP(user, code, s.now()); err != nil {
		logrus.WithField("userID", user.ID.Hex()).Warn("OTP login failed")
		return nil, err
	}

	if err := s.store.UpdateUser(ctx, user.ID, map[string]interface{}{
		"otp":             nil,
		"otp_expiry":      nil,
		"activity_status": models.ActivityOnline,
	}); err != nil {
		return nil, storeError(err, "failed to log in")
	}
	user.ClearOTP()
	user.ActivityStatus = models.ActivityOnline

	logrus.WithField("userID", user.ID.Hex()).Info("User logged in with OTP")
	return s.session(user)
}

// Logout marks the account offline.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.store.UpdateUser(ctx, userID, map[string]interface{}{
		"activity_status": models.ActivityOffline,
	}); err != nil {
		return storeError(err, "failed to log out")
	}
	logrus.WithField("userID", userID.Hex()).Info("User logged out")
	return nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, s.cfg.JWTSecret, s.cfg.TokenExpiry)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate JWT token")
		return nil, apperror.Wrap(apperror.KindInternal, "failed to create session", err)
	}
	return &Session{Token: token, User: user.Public()}, nil
}

func (s *AuthService) logActivity(ctx context.Context, userID primitive.ObjectID, actionType, message string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.LogActivity(ctx, userID, actionType, userID, message)
}
