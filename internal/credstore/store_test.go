package credstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/storage"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		AdminTokenKey:    "test.admin_token",
		EmployeeTokenKey: "test.employee_token",
		StoredAtKey:      "test.stored_at",
	}
}

func TestStore_SetGet(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	store := New(mem.Handle(), testSessionConfig(), zap.NewNop())

	store.Set(domain.RoleAdmin, "tok-a")
	store.Set(domain.RoleEmployee, "tok-e")

	assert.Equal(t, "tok-a", store.Get(domain.RoleAdmin))
	assert.Equal(t, "tok-e", store.Get(domain.RoleEmployee))
}

func TestStore_SetStampsStoredAt(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	store := New(mem.Handle(), testSessionConfig(), zap.NewNop())
	stamp := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return stamp }

	require.True(t, store.StoredAt().IsZero())

	store.Set(domain.RoleAdmin, "tok")
	assert.Equal(t, stamp.Unix(), store.StoredAt().Unix())
}

func TestStore_ClearEmptiesBothSlots(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	store := New(mem.Handle(), testSessionConfig(), zap.NewNop())

	store.Set(domain.RoleAdmin, "tok-a")
	store.Set(domain.RoleEmployee, "tok-e")
	store.Clear()

	assert.Empty(t, store.Get(domain.RoleAdmin))
	assert.Empty(t, store.Get(domain.RoleEmployee))
	assert.True(t, store.StoredAt().IsZero())
}

func TestStore_DiscardIsRoleScoped(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	store := New(mem.Handle(), testSessionConfig(), zap.NewNop())

	store.Set(domain.RoleAdmin, "tok-a")
	store.Set(domain.RoleEmployee, "tok-e")
	store.Discard(domain.RoleAdmin)

	assert.Empty(t, store.Get(domain.RoleAdmin))
	assert.Equal(t, "tok-e", store.Get(domain.RoleEmployee))
}

func TestStore_WriteFailureDegradesToNoOp(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	store := New(mem.Handle(), testSessionConfig(), zap.NewNop())

	mem.FailWrites(errors.New("quota exceeded"))
	store.Set(domain.RoleAdmin, "tok")

	assert.Empty(t, store.Get(domain.RoleAdmin))
}
