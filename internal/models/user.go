package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultProfilePicture = "https://cellphones.com.vn/sforum/wp-content/uploads/2023/10/avatar-trang-4.jpg"
	DefaultCoverPicture   = "https://inkythuatso.com/uploads/thumbnails/800/2022/04/11-6-2015-2-57-50-pm-04-22-58-48.jpg"
)

const (
	ActivityOnline  = "Online"
	ActivityOffline = "Offline"
)

// Genders and RelationshipStatuses list the values accepted for those profile fields.
var (
	Genders              = []string{"Male", "Female", "Other"}
	RelationshipStatuses = []string{"Single", "In a relationship", "Married", "Divorced", "Widowed"}
)

// User is one account document: identity, profile, security state and the
// account's side of the relationship graph.
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email              string             `bson:"email" json:"email"`
	PhoneNumber        string             `bson:"phone_number" json:"phone_number"`
	FullName           string             `bson:"full_name" json:"full_name"`
	DateOfBirth        time.Time          `bson:"date_of_birth" json:"date_of_birth"`
	Gender             string             `bson:"gender" json:"gender"`
	HashedPassword     string             `bson:"password" json:"-"`
	ProfilePicture     string             `bson:"profile_picture" json:"profile_picture"`
	CoverPicture       string             `bson:"cover_picture" json:"cover_picture"`
	Work               string             `bson:"work" json:"work"`
	Education          string             `bson:"education" json:"education"`
	CurrentCity        string             `bson:"current_city" json:"current_city"`
	Hometown           string             `bson:"hometown" json:"hometown"`
	RelationshipStatus string             `bson:"relationship_status" json:"relationship_status"`
	ActivityStatus     string             `bson:"activity_status" json:"activity_status"`

	// Security state. OTPExpiry is set iff OTP is non-empty.
	OTP                 string     `bson:"otp,omitempty" json:"-"`
	OTPExpiry           *time.Time `bson:"otp_expiry,omitempty" json:"-"`
	IsVerified          bool       `bson:"is_verified" json:"is_verified"`
	IsLocked            bool       `bson:"is_locked" json:"is_locked"`
	FailedLoginAttempts int        `bson:"failed_login_attempts" json:"-"`
	VerificationDate    *time.Time `bson:"verification_date,omitempty" json:"verification_date,omitempty"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`

	// Relationship edges. FriendsCount mirrors len(Friends).
	FriendsCount           int                  `bson:"friends_count" json:"friends_count"`
	Friends                []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequestsSent     []primitive.ObjectID `bson:"friendRequestsSent" json:"friend_requests_sent"`
	FriendRequestsReceived []primitive.ObjectID `bson:"friendRequestsReceived" json:"friend_requests_received"`
}

// PublicUser is the projection of an account that is safe to show to other users.
type PublicUser struct {
	ID                 primitive.ObjectID `json:"id"`
	FullName           string             `json:"full_name"`
	Email              string             `json:"email"`
	ProfilePicture     string             `json:"profile_picture"`
	CoverPicture       string             `json:"cover_picture"`
	Work               string             `json:"work,omitempty"`
	Education          string             `json:"education,omitempty"`
	CurrentCity        string             `json:"current_city,omitempty"`
	Hometown           string             `json:"hometown,omitempty"`
	RelationshipStatus string             `json:"relationship_status,omitempty"`
	ActivityStatus     string             `json:"activity_status"`
	FriendsCount       int                `json:"friends_count"`
}

// Public returns the public projection of the account.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		FullName:           u.FullName,
		Email:              u.Email,
		ProfilePicture:     u.ProfilePicture,
		CoverPicture:       u.CoverPicture,
		Work:               u.Work,
		Education:          u.Education,
		CurrentCity:        u.CurrentCity,
		Hometown:           u.Hometown,
		RelationshipStatus: u.RelationshipStatus,
		ActivityStatus:     u.ActivityStatus,
		FriendsCount:       u.FriendsCount,
	}
}

// HasOTP reports whether a one-time code is currently issued.
func (u *User) HasOTP() bool {
	return u.OTP != "" && u.OTPExpiry != nil
}

// ClearOTP drops the one-time code and its expiry together.
func (u *User) ClearOTP() {
	u.OTP = ""
	u.OTPExpiry = nil
}
