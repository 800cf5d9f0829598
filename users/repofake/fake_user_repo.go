package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/contacts-auth/internal/utils"
	"github.com/jrsteele09/contacts-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory users.Repo. Every read returns a copy, mirroring a
// database round trip.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex

	// Err, when set, is returned by every call to simulate an unreachable store.
	Err error

	lookups int
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

// Upsert stores user as-is, assigning an ID when missing.
func (ur *FakeUserRepo) Upsert(user *users.User) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.Err != nil {
		return ur.Err
	}
	if _, ok := ur.emailIds[user.Email]; ok {
		return users.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.lookups++
	if ur.Err != nil {
		return nil, ur.Err
	}
	id, ok := ur.emailIds[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.lookups++
	if ur.Err != nil {
		return nil, ur.Err
	}
	u, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u.Clone(), nil
}

func (ur *FakeUserRepo) SetRefreshToken(_ context.Context, id string, token *string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.Err != nil {
		return ur.Err
	}
	u, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	if token == nil {
		u.RefreshToken = nil
		return nil
	}
	u.RefreshToken = utils.Ptr(*token)
	return nil
}

func (ur *FakeUserRepo) CompareAndSetRefreshToken(_ context.Context, id, expected, next string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.Err != nil {
		return ur.Err
	}
	u, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	if utils.Value(u.RefreshToken) != expected || expected == "" {
		return users.ErrRefreshTokenMismatch
	}
	u.RefreshToken = utils.Ptr(next)
	return nil
}

func (ur *FakeUserRepo) SetPasswordHash(_ context.Context, id, hash string) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.Err != nil {
		return nil, ur.Err
	}
	u, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	u.PasswordHash = hash
	return u.Clone(), nil
}

func (ur *FakeUserRepo) MarkConfirmed(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.Err != nil {
		return ur.Err
	}
	u, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	u.Confirmed = true
	return nil
}

// Lookups returns how many GetByEmail/GetByID calls reached the repo.
func (ur *FakeUserRepo) Lookups() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.lookups
}

// SetErr makes every subsequent call fail with err; nil restores normal behaviour.
func (ur *FakeUserRepo) SetErr(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.Err = err
}
