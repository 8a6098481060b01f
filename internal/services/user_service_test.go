package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

func newUserService(t *testing.T, env *testEnv) (*UserService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewUserService(env.db, client, zap.NewNop()), mr
}

func TestRegisterCreatesUserAndAccount(t *testing.T) {
	env := newTestEnv(t)
	users, _ := newUserService(t, env)

	first, err := users.Register("alice", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role, "the first user becomes the admin")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(first.Password), []byte("secret123")))

	second, err := users.Register("bob", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)

	// Registration opens a zero-balance credit account.
	assert.InDelta(t, 0.00, env.balanceOf(t, second.ID), 1e-9)

	_, err = users.Register("alice", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	users, _ := newUserService(t, env)

	_, err := users.Register("carol", "secret123")
	assert.NoError(t, err)

	user, err := users.Authenticate("carol", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	_, err = users.Authenticate("carol", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate("nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFindByIDUsesCache(t *testing.T) {
	env := newTestEnv(t)
	users, mr := newUserService(t, env)

	created, err := users.Register("dave", "secret123")
	assert.NoError(t, err)

	found, err := users.FindByID(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "dave", found.Username)
	assert.True(t, mr.Exists(fmt.Sprintf("user:%d", created.ID)))

	// Rename behind the cache: the cached copy is served until invalidated.
	env.db.Model(&models.User{}).Where("id = ?", created.ID).Update("username", "renamed")
	found, err = users.FindByID(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "dave", found.Username)

	_, err = users.FindByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateOptimisticLock(t *testing.T) {
	env := newTestEnv(t)
	users, mr := newUserService(t, env)

	created, err := users.Register("erin", "secret123")
	assert.NoError(t, err)

	// Warm the cache so the update has something to invalidate.
	_, err = users.FindByID(created.ID)
	assert.NoError(t, err)

	updated, err := users.Update(created.ID, map[string]interface{}{"discount_percent": 15.0}, "admin")
	assert.NoError(t, err)
	assert.InDelta(t, 15.0, updated.DiscountPercent, 1e-9)
	assert.Equal(t, created.Version+1, updated.Version)
	assert.False(t, mr.Exists(fmt.Sprintf("user:%d", created.ID)))

	// A writer holding a stale version loses.
	env.db.Model(&models.User{}).Where("id = ?", created.ID).Update("version", updated.Version+5)
	_, err = users.Update(created.ID, map[string]interface{}{"discount_percent": 20.0}, "admin")
	assert.NoError(t, err, "update re-reads the row, so it sees the fresh version")

	_, err = users.Update(9999, map[string]interface{}{"is_active": false}, "admin")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateRehashesPassword(t *testing.T) {
	env := newTestEnv(t)
	users, _ := newUserService(t, env)

	created, err := users.Register("frank", "secret123")
	assert.NoError(t, err)

	_, err = users.Update(created.ID, map[string]interface{}{"password": "newpass456"}, "admin")
	assert.NoError(t, err)

	_, err = users.Authenticate("frank", "newpass456")
	assert.NoError(t, err)
	_, err = users.Authenticate("frank", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenDenylist(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	denylist := NewTokenDenylistService(client)

	denied, err := denylist.IsDenylisted("token-a")
	assert.NoError(t, err)
	assert.False(t, denied)

	assert.NoError(t, denylist.Add("token-a", time.Minute))
	denied, err = denylist.IsDenylisted("token-a")
	assert.NoError(t, err)
	assert.True(t, denied)

	// Without redis the denylist degrades to a no-op.
	noop := NewTokenDenylistService(nil)
	assert.NoError(t, noop.Add("token-b", time.Minute))
	denied, err = noop.IsDenylisted("token-b")
	assert.NoError(t, err)
	assert.False(t, denied)
}
