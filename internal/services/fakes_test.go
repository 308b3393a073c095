package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// memoryStore is an in-memory UserStore. Documents are copied on the way in
// and out, like a real store.
type memoryStore struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*models.User
	updates int

	// failUpdate, when set, can reject an UpdateUser call.
	failUpdate func(id primitive.ObjectID, fields map[string]interface{}) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Friends = append([]primitive.ObjectID{}, u.Friends...)
	c.FriendRequestsSent = append([]primitive.ObjectID{}, u.FriendRequestsSent...)
	c.FriendRequestsReceived = append([]primitive.ObjectID{}, u.FriendRequestsReceived...)
	if u.OTPExpiry != nil {
		t := *u.OTPExpiry
		c.OTPExpiry = &t
	}
	if u.VerificationDate != nil {
		t := *u.VerificationDate
		c.VerificationDate = &t
	}
	return &c
}

func (m *memoryStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.PhoneNumber == user.PhoneNumber {
			return nil, repository.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = cloneUser(user)
	return user, nil
}

func (m *memoryStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *memoryStore) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memoryStore) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.PhoneNumber == phone })
}

func (m *memoryStore) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *memoryStore) UpdateUser(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		if err := m.failUpdate(id, fields); err != nil {
			return err
		}
	}
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if len(fields) == 0 {
		return nil
	}
	m.updates++
	for k, v := range fields {
		if err := applyField(u, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStore) IncrementFailedLogins(_ context.Context, id primitive.ObjectID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		if err := m.failUpdate(id, map[string]interface{}{"failed_login_attempts": nil}); err != nil {
			return 0, err
		}
	}
	u, ok := m.users[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	m.updates++
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func applyField(u *models.User, key string, v interface{}) error {
	switch key {
	case "otp":
		if v == nil {
			u.OTP = ""
		} else {
			u.OTP = v.(string)
		}
	case "otp_expiry":
		if v == nil {
			u.OTPExpiry = nil
		} else {
			t := v.(time.Time)
			u.OTPExpiry = &t
		}
	case "verification_date":
		t := v.(time.Time)
		u.VerificationDate = &t
	case "is_verified":
		u.IsVerified = v.(bool)
	case "is_locked":
		u.IsLocked = v.(bool)
	case "failed_login_attempts":
		u.FailedLoginAttempts = v.(int)
	case "password":
		u.HashedPassword = v.(string)
	case "activity_status":
		u.ActivityStatus = v.(string)
	case "friends":
		u.Friends = append([]primitive.ObjectID{}, v.([]primitive.ObjectID)...)
	case "friendRequestsSent":
		u.FriendRequestsSent = append([]primitive.ObjectID{}, v.([]primitive.ObjectID)...)
	case "friendRequestsReceived":
		u.FriendRequestsReceived = append([]primitive.ObjectID{}, v.([]primitive.ObjectID)...)
	case "friends_count":
		u.FriendsCount = v.(int)
	case "email":
		u.Email = v.(string)
	case "phone_number":
		u.PhoneNumber = v.(string)
	case "full_name":
		u.FullName = v.(string)
	case "date_of_birth":
		u.DateOfBirth = v.(time.Time)
	case "gender":
		u.Gender = v.(string)
	case "work":
		u.Work = v.(string)
	case "education":
		u.Education = v.(string)
	case "current_city":
		u.CurrentCity = v.(string)
	case "hometown":
		u.Hometown = v.(string)
	case "relationship_status":
		u.RelationshipStatus = v.(string)
	default:
		return fmt.Errorf("memoryStore: unknown field %q", key)
	}
	return nil
}

func (m *memoryStore) GetAllUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

func (m *memoryStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []*models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

// user returns the stored document for assertions.
func (m *memoryStore) user(id primitive.ObjectID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.users[id])
}

// seed stores an account with empty relationship lists and returns its id.
func (m *memoryStore) seed(email string) primitive.ObjectID {
	u := &models.User{
		ID:                     primitive.NewObjectID(),
		Email:                  email,
		PhoneNumber:            "phone-" + email,
		HashedPassword:         "hashed:secret1",
		Friends:                []primitive.ObjectID{},
		FriendRequestsSent:     []primitive.ObjectID{},
		FriendRequestsReceived: []primitive.ObjectID{},
	}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u.ID
}

// plainHasher is a cheap stand-in for bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (plainHasher) Verify(plaintext, hash string) bool {
	return strings.TrimPrefix(hash, "hashed:") == plaintext && strings.HasPrefix(hash, "hashed:")
}

// recordingMailer remembers every code it was asked to send.
type recordingMailer struct {
	mu    sync.Mutex
	sent  map[string][]string
	err   error
	calls int
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: map[string][]string{}}
}

func (r *recordingMailer) SendOTP(_ context.Context, address, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.sent[address] = append(r.sent[address], code)
	return nil
}

func (r *recordingMailer) last(address string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := r.sent[address]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

type loggedActivity struct {
	userID   primitive.ObjectID
	kind     string
	targetID primitive.ObjectID
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []loggedActivity
}

func (r *recordingActivity) LogActivity(_ context.Context, userID primitive.ObjectID, actionType string, targetID primitive.ObjectID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, loggedActivity{userID: userID, kind: actionType, targetID: targetID})
	return nil
}

func (r *recordingActivity) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

// stubLocker counts lock and unlock calls and can refuse the lock.
type stubLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	err      error
	lastPair [2]primitive.ObjectID
}

func (l *stubLocker) Lock(_ context.Context, a, b primitive.ObjectID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	l.lastPair = [2]primitive.ObjectID{a, b}
	return func() {
		l.mu.Lock()
		l.unlocks++
		l.mu.Unlock()
	}, nil
}

var errStoreDown = errors.New("store unavailable")
