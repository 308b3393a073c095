package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"github.com/Dias221467/social-network/pkg/validation"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterInput is the data accepted when creating an account.
type RegisterInput struct {
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Password    string    `json:"password"`
	FullName    string    `json:"full_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      string    `json:"gender"`
}

// ProfileUpdate carries the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	Email              *string    `json:"email"`
	PhoneNumber        *string    `json:"phone_number"`
	FullName           *string    `json:"full_name"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	Gender             *string    `json:"gender"`
	Work               *string    `json:"work"`
	Education          *string    `json:"education"`
	CurrentCity        *string    `json:"current_city"`
	Hometown           *string    `json:"hometown"`
	RelationshipStatus *string    `json:"relationship_status"`
}

// UserService is the credential and OTP engine: registration, one-time codes,
// password changes and profile edits.
type UserService struct {
	store    UserStore
	hasher   PasswordHasher
	mailer   Mailer
	activity ActivityLogger
	cfg      CredentialConfig
	now      func() time.Time
}

// NewUserService creates a new instance of UserService. activity may be nil.
func NewUserService(store UserStore, hasher PasswordHasher, mailer Mailer, activity ActivityLogger, cfg CredentialConfig) *UserService {
	return &UserService{
		store:    store,
		hasher:   hasher,
		mailer:   mailer,
		activity: activity,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *UserService) validatePassword(field, password string) error {
	if !validation.CheckPasswordFormat(password) {
		return apperror.Validation(field, "password must be at least 6 characters and contain no spaces")
	}
	return nil
}

func (s *UserService) validateAge(dob time.Time) error {
	if dob.IsZero() || !validation.CheckAge(dob, s.now(), s.cfg.MinAge, s.cfg.MaxAge) {
		return apperror.Validation("date_of_birth", fmt.Sprintf("age must be between %d and %d", s.cfg.MinAge, s.cfg.MaxAge))
	}
	return nil
}

// Register validates the input, creates an unverified account holding a fresh
// OTP and mails the code. A delivery failure is returned together with the
// created account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = validation.SanitizeEmail(in.Email)
	logrus.WithField("email", in.Email).Info("Registering new user")

	if !validation.CheckEmailFormat(in.Email) {
		return nil, apperror.Validation("email", "invalid email")
	}
	phone, ok := validation.NormalizePhone(in.PhoneNumber, s.cfg.PhoneRegion)
	if !ok {
		return nil, apperror.Validation("phone_number", "invalid phone number")
	}
	in.PhoneNumber = phone
	if err := s.validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if err := s.validateAge(in.DateOfBirth); err != nil {
		return nil, err
	}
	if !validation.OneOf(in.Gender, models.Genders) {
		return nil, apperror.Validation("gender", "gender must be Male, Female or Other")
	}
	fullName := validation.NormalizeName(in.FullName)
	if fullName == "" {
		return nil, apperror.Validation("full_name", "full name is required")
	}

	if err := s.ensureUnique(ctx, primitive.NilObjectID, in.Email, in.PhoneNumber); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, apperror.Wrap(apperror.KindInternal, "failed to register user", err)
	}

	code, err := GenerateOTPCode(s.cfg.OTPLength)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to generate verification code", err)
	}
	now := s.now()
	expiry := now.Add(s.cfg.OTPTTL)

	user := &models.User{
		Email:                  in.Email,
		PhoneNumber:            in.PhoneNumber,
		FullName:               fullName,
		DateOfBirth:            in.DateOfBirth,
		Gender:                 in.Gender,
		HashedPassword:         hashed,
		ProfilePicture:         models.DefaultProfilePicture,
		CoverPicture:           models.DefaultCoverPicture,
		ActivityStatus:         models.ActivityOffline,
		OTP:                    code,
		OTPExpiry:              &expiry,
		CreatedAt:              now,
		Friends:                []primitive.ObjectID{},
		FriendRequestsSent:     []primitive.ObjectID{},
		FriendRequestsReceived: []primitive.ObjectID{},
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, storeError(err, "failed to register user")
	}

	logrus.WithField("userID", created.ID.Hex()).Info("User registered successfully")

	if err := s.mailer.SendOTP(ctx, created.Email, code); err != nil {
		logrus.WithError(err).WithField("email", created.Email).Error("Failed to send verification code")
		return created, apperror.Wrap(apperror.KindDelivery, "account created but the verification code could not be sent", err)
	}
	return created, nil
}

// ensureUnique fails with Conflict when email or phone belongs to an account other than self.
func (s *UserService) ensureUnique(ctx context.Context, self primitive.ObjectID, email, phone string) error {
	if email != "" {
		existing, err := s.store.GetUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return storeError(err, "failed to check email")
		}
		if existing != nil && existing.ID != self {
			logrus.WithField("email", email).Warn("Email already in use")
			return &apperror.Error{Kind: apperror.KindConflict, Message: "email already in use", Field: "email"}
		}
	}
	if phone != "" {
		existing, err := s.store.GetUserByPhone(ctx, phone)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return storeError(err, "failed to check phone number")
		}
		if existing != nil && existing.ID != self {
			logrus.WithField("phone", phone).Warn("Phone number already in use")
			return &apperror.Error{Kind: apperror.KindConflict, Message: "phone number already in use", Field: "phone_number"}
		}
	}
	return nil
}

// SendOTP issues a fresh code to the account registered under email. The new
// code is stored even when delivery fails.
func (s *UserService) SendOTP(ctx context.Context, email string) error {
	email = validation.SanitizeEmail(email)
	if email == "" {
		return apperror.Validation("email", "email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return storeError(err, "failed to send verification code")
	}
	return s.issueOTP(ctx, user)
}

func (s *UserService) issueOTP(ctx context.Context, user *models.User) error {
	code, err := GenerateOTPCode(s.cfg.OTPLength)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "failed to generate verification code", err)
	}
	expiry := s.now().Add(s.cfg.OTPTTL)

	if err := s.store.UpdateUser(ctx, user.ID, map[string]interface{}{
		"otp":        code,
		"otp_expiry": expiry,
	}); err != nil {
		return storeError(err, "failed to store verification code")
	}
	user.OTP = code
	user.OTPExpiry = &expiry

	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Error("Failed to send verification code")
		return apperror.Wrap(apperror.KindDelivery, "verification code could not be sent", err)
	}
	logrus.WithField("userID", user.ID.Hex()).Info("Verification code issued")
	return nil
}

// VerifyOTP confirms the account when code matches the issued, unexpired OTP.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) error {
	email = validation.SanitizeEmail(email)
	if email == "" || code == "" {
		return apperror.Validation("otp", "email and verification code are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return storeError(err, "failed to verify code")
	}
	now := s.now()
	if err := checkOTP(user, code, now); err != nil {
		logrus.WithField("userID", user.ID.Hex()).Warn("OTP verification failed")
		return err
	}

	if err := s.store.UpdateUser(ctx, user.ID, map[string]interface{}{
		"otp":               nil,
		"otp_expiry":        nil,
		"is_verified":       true,
		"verification_date": now,
	}); err != nil {
		return storeError(err, "failed to verify account")
	}
	user.ClearOTP()
	user.IsVerified = true
	user.VerificationDate = &now

	s.logActivity(ctx, user.ID, models.ActivityAccountVerified, user.ID, "Account verified")
	logrus.WithField("userID", user.ID.Hex()).Info("Account verified")
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	if err := s.validatePassword("new_password", newPassword); err != nil {
		return err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeError(err, "failed to change password")
	}
	if !s.hasher.Verify(oldPassword, user.HashedPassword) {
		logrus.WithField("userID", userID.Hex()).Warn("Old password mismatch")
		return apperror.New(apperror.KindInvalidCredentials, "old password is incorrect")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "failed to change password", err)
	}
	if err := s.store.UpdateUser(ctx, userID, map[string]interface{}{"password": hashed}); err != nil {
		return storeError(err, "failed to change password")
	}

	logrus.WithField("userID", userID.Hex()).Info("Password changed")
	return nil
}

// UpdateProfile validates and applies a partial profile edit and returns the
// updated public profile. Security and relationship fields are not reachable.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileUpdate) (models.PublicUser, error) {
	fields := map[string]interface{}{}
	var email, phone string

	if in.Email != nil {
		email = validation.SanitizeEmail(*in.Email)
		if !validation.CheckEmailFormat(email) {
			return models.PublicUser{}, apperror.Validation("email", "invalid email")
		}
		fields["email"] = email
	}
	if in.PhoneNumber != nil {
		var ok bool
		phone, ok = validation.NormalizePhone(*in.PhoneNumber, s.cfg.PhoneRegion)
		if !ok {
			return models.PublicUser{}, apperror.Validation("phone_number", "invalid phone number")
		}
		fields["phone_number"] = phone
	}
	if in.DateOfBirth != nil {
		if err := s.validateAge(*in.DateOfBirth); err != nil {
			return models.PublicUser{}, err
		}
		fields["date_of_birth"] = *in.DateOfBirth
	}
	if in.Gender != nil {
		if !validation.OneOf(*in.Gender, models.Genders) {
			return models.PublicUser{}, apperror.Validation("gender", "gender must be Male, Female or Other")
		}
		fields["gender"] = *in.Gender
	}
	if in.RelationshipStatus != nil {
		if !validation.OneOf(*in.RelationshipStatus, models.RelationshipStatuses) {
			return models.PublicUser{}, apperror.Validation("relationship_status", "unknown relationship status")
		}
		fields["relationship_status"] = *in.RelationshipStatus
	}
	if in.FullName != nil {
		name := validation.NormalizeName(*in.FullName)
		if name == "" {
			return models.PublicUser{}, apperror.Validation("full_name", "full name cannot be empty")
		}
		fields["full_name"] = name
	}
	for key, value := range map[string]*string{
		"work":         in.Work,
		"education":    in.Education,
		"current_city": in.CurrentCity,
		"hometown":     in.Hometown,
	} {
		if value != nil {
			fields[key] = strings.TrimSpace(*value)
		}
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return models.PublicUser{}, storeError(err, "failed to update profile")
	}
	if err := s.ensureUnique(ctx, userID, email, phone); err != nil {
		return models.PublicUser{}, err
	}
	if err := s.store.UpdateUser(ctx, userID, fields); err != nil {
		return models.PublicUser{}, storeError(err, "failed to update profile")
	}

	logrus.WithFields(logrus.Fields{
		"userID": userID.Hex(),
		"fields": len(fields),
	}).Info("Profile updated")
	return s.GetUser(ctx, userID)
}

// GetUser retrieves the public profile of an account.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (models.PublicUser, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, storeError(err, "failed to get user")
	}
	return user.Public(), nil
}

func (s *UserService) logActivity(ctx context.Context, userID primitive.ObjectID, actionType string, targetID primitive.ObjectID, message string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.LogActivity(ctx, userID, actionType, targetID, message)
}
