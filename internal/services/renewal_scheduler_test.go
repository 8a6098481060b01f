package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

func TestRunPassRenewsDueSubscriptions(t *testing.T) {
	env := newTestEnv(t)

	funded := env.seedUser(t, "funded", models.RoleUser, 10.00)
	broke := env.seedUser(t, "unfunded", models.RoleUser, 0)

	paying, err := env.subs.Create(funded.ID, models.ResourceTypeDevice, "dev-a", 3.00, false)
	assert.NoError(t, err)
	failing, err := env.subs.Create(broke.ID, models.ResourceTypeBot, "bot-a", 3.00, false)
	assert.NoError(t, err)
	notDue, err := env.subs.Create(funded.ID, models.ResourceTypePanel, "p-a", 3.00, false)
	assert.NoError(t, err)

	makeDue(t, env, paying.ID)
	makeDue(t, env, failing.ID)

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Paused)

	assert.InDelta(t, 7.00, env.balanceOf(t, funded.ID), 1e-9)
	assert.Len(t, env.activity.eventsOf("renewal_failed"), 1)

	// The renewed subscription is no longer due; re-running the pass only
	// picks up the still-failing one.
	result, err = env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Succeeded)

	var reloaded models.Subscription
	env.db.First(&reloaded, notDue.ID)
	assert.Equal(t, 0, reloaded.FailedAttempts)
}

func TestRunPassCountsFreeFirstAsSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "freepass", models.RoleUser, 0)

	sub, err := env.subs.Create(user.ID, models.ResourceTypeDevice, "dev-b", 3.00, true)
	assert.NoError(t, err)
	makeDue(t, env, sub.ID)

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.InDelta(t, 0.00, env.balanceOf(t, user.ID), 1e-9)
}

func TestRunPassPausesAfterGraceExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.DefaultGraceDays = 2
	user := env.seedUser(t, "gracerun", models.RoleUser, 0)

	sub, err := env.subs.Create(user.ID, models.ResourceTypeDevice, "dev-c", 3.00, false)
	assert.NoError(t, err)
	makeDue(t, env, sub.ID)

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Paused)

	result, err = env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Paused)

	var reloaded models.Subscription
	env.db.First(&reloaded, sub.ID)
	assert.Equal(t, models.SubscriptionPaused, reloaded.Status)
}

func TestRunPassFailingSinkDoesNotAbortBatch(t *testing.T) {
	env := newTestEnv(t)
	env.activity.err = assert.AnError

	funded := env.seedUser(t, "sinkok", models.RoleUser, 10.00)
	broke := env.seedUser(t, "sinkbad", models.RoleUser, 0)

	paying, err := env.subs.Create(funded.ID, models.ResourceTypeDevice, "dev-d", 3.00, false)
	assert.NoError(t, err)
	failing, err := env.subs.Create(broke.ID, models.ResourceTypeBot, "bot-d", 3.00, false)
	assert.NoError(t, err)
	makeDue(t, env, paying.ID)
	makeDue(t, env, failing.ID)

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}

func TestRunPassReentrancyGuard(t *testing.T) {
	env := newTestEnv(t)

	env.scheduler.mu.Lock()
	env.scheduler.running = true
	env.scheduler.startedAt = time.Now()
	env.scheduler.mu.Unlock()

	_, err := env.scheduler.RunPass()
	assert.ErrorIs(t, err, ErrPassInProgress)

	status := env.scheduler.Status()
	assert.True(t, status.Running)
	assert.NotNil(t, status.StartedAt)
}

func TestRunPassForceClearsStaleGuard(t *testing.T) {
	env := newTestEnv(t)

	// A guard held past the maximum pass duration is treated as abandoned.
	env.scheduler.mu.Lock()
	env.scheduler.running = true
	env.scheduler.startedAt = time.Now().Add(-2 * env.cfg.MaxPassDuration)
	env.scheduler.mu.Unlock()

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)
	assert.NotNil(t, result)

	status := env.scheduler.Status()
	assert.False(t, status.Running)
	assert.Equal(t, result, status.LastResult)
}

func TestStaleGuardReleaseDoesNotClearTakeover(t *testing.T) {
	env := newTestEnv(t)

	// Pass 1 took the guard long ago and hung.
	gen1, ok := env.scheduler.tryAcquire(time.Now().Add(-2 * env.cfg.MaxPassDuration))
	assert.True(t, ok)

	// Pass 2 force-clears the stale guard and takes over.
	gen2, ok := env.scheduler.tryAcquire(time.Now())
	assert.True(t, ok)
	assert.NotEqual(t, gen1, gen2)

	// The evicted pass finally returns; its release must not free the guard
	// pass 2 now holds.
	env.scheduler.release(gen1)
	assert.True(t, env.scheduler.Status().Running, "guard must still be held by the in-flight pass")

	// A third invocation within the duration bound stays blocked.
	_, err := env.scheduler.RunPass()
	assert.ErrorIs(t, err, ErrPassInProgress)

	// Only the current holder can clear the guard.
	env.scheduler.release(gen2)
	assert.False(t, env.scheduler.Status().Running)
}

func TestSchedulerStatusTracksLastResult(t *testing.T) {
	env := newTestEnv(t)

	status := env.scheduler.Status()
	assert.False(t, status.Running)
	assert.Nil(t, status.LastResult)

	result, err := env.scheduler.RunPass()
	assert.NoError(t, err)

	status = env.scheduler.Status()
	assert.False(t, status.Running)
	assert.Equal(t, result, status.LastResult)
	assert.Equal(t, 0, status.LastResult.Processed)
}
