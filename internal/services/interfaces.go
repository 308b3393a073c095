package services

import (
	"context"
	"time"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the account document store. Single-document operations are
// atomic; nothing spanning two documents is.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
	// IncrementFailedLogins atomically adds one to failed_login_attempts and returns the new value.
	IncrementFailedLogins(ctx context.Context, id primitive.ObjectID) (int, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
}

// ActivityStore persists the activity log.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetUserActivities(ctx context.Context, userID primitive.ObjectID, q repository.ActivityQuery) ([]models.Activity, error)
}

// Mailer dispatches one-time codes.
type Mailer interface {
	SendOTP(ctx context.Context, address, code string) error
}

// PasswordHasher is a salted one-way hash with a constant-time verify.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// PairLocker serialises operations on an unordered pair of accounts.
type PairLocker interface {
	Lock(ctx context.Context, a, b primitive.ObjectID) (func(), error)
}

// ActivityLogger records a successful account or relationship event.
type ActivityLogger interface {
	LogActivity(ctx context.Context, userID primitive.ObjectID, actionType string, targetID primitive.ObjectID, message string) error
}

// CredentialConfig holds the credential engine settings.
type CredentialConfig struct {
	OTPLength       int
	OTPTTL          time.Duration
	MaxFailedLogins int
	MinAge          int
	MaxAge          int
	PhoneRegion     string
	JWTSecret       string
	TokenExpiry     time.Duration
}

// DefaultCredentialConfig mirrors the environment defaults.
func DefaultCredentialConfig() CredentialConfig {
	return CredentialConfig{
		OTPLength:       6,
		OTPTTL:          time.Hour,
		MaxFailedLogins: 5,
		MinAge:          16,
		MaxAge:          100,
		PhoneRegion:     "VN",
		JWTSecret:       "change-me",
		TokenExpiry:     24 * time.Hour,
	}
}
