package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lazytech/jjc-console/internal/broadcast"
	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/credstore"
	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/observability"
	"github.com/lazytech/jjc-console/internal/storage"
	"github.com/lazytech/jjc-console/internal/token"
)

const testSecret = "test-secret"

func testCfg() config.SessionConfig {
	return config.SessionConfig{
		AdminChannel:        "admin",
		EmployeeChannel:     "employee",
		AdminTokenKey:       "auth.admin_token",
		EmployeeTokenKey:    "auth.employee_token",
		StoredAtKey:         "auth.stored_at",
		RelayKey:            "session.relay",
		RelayClearDelayMS:   1,
		DefaultLogoutReason: "You have been logged out from another tab",
	}
}

// newTab builds one console instance over the shared device: its own
// storage handle plus a dual broadcaster of the shared hub and the
// storage relay.
func newTab(t *testing.T, mem *storage.Memory, hub *broadcast.Hub) *Manager {
	t.Helper()

	cfg := testCfg()
	handle := mem.Handle()
	bus := broadcast.NewDual(hub,
		broadcast.NewRelay(handle, cfg.RelayKey, cfg.RelayClearDelay(), zap.NewNop()))

	m := NewManager(Options{
		Codec:       token.NewCodec(testSecret),
		Credentials: credstore.New(handle, cfg, zap.NewNop()),
		Bus:         bus,
		Session:     cfg,
		Logger:      zap.NewNop(),
		Metrics:     observability.NewMetrics(),
	})
	m.Start()
	t.Cleanup(m.Close)
	return m
}

func adminIdentity() domain.Identity {
	return domain.Identity{
		ID:          "42",
		Username:    "msantos",
		Name:        "Maria Santos",
		Role:        "admin",
		AccessLevel: "admin",
	}
}

func TestManager_Login_PopulatesBothSessions(t *testing.T) {
	t.Parallel()

	tab := newTab(t, storage.NewMemory(), broadcast.NewHub())
	tab.Login(adminIdentity(), "finance", "")

	admin := tab.User()
	employee := tab.Employee()
	require.NotNil(t, admin)
	require.NotNil(t, employee)

	assert.Equal(t, "42", admin.ID)
	assert.Equal(t, "EMP-42", employee.ID)
	assert.Equal(t, admin.Name, employee.Name)
	assert.Equal(t, "finance", tab.SelectedDepartment())
	assert.True(t, tab.IsAuthenticated())
	assert.True(t, tab.IsEmployeeAuthenticated())
}

func TestManager_Login_StoresTokenUnderBothSlots(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	tab := newTab(t, mem, broadcast.NewHub())
	tab.Login(adminIdentity(), "finance", "")

	creds := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	adminTok := creds.Get(domain.RoleAdmin)
	employeeTok := creds.Get(domain.RoleEmployee)

	require.NotEmpty(t, adminTok)
	assert.Equal(t, adminTok, employeeTok)
	assert.False(t, creds.StoredAt().IsZero())
}

func TestManager_Logout_ClearsEverythingAndBroadcastsOncePerChannel(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tab := newTab(t, mem, hub)
	tab.Login(adminIdentity(), "finance", "")

	logouts := map[string]int{}
	hub.Subscribe("admin", func(msg broadcast.Message) {
		if msg.Type == broadcast.MessageLogout {
			logouts["admin"]++
		}
	})
	hub.Subscribe("employee", func(msg broadcast.Message) {
		if msg.Type == broadcast.MessageLogout {
			logouts["employee"]++
		}
	})

	tab.Logout("")

	assert.Nil(t, tab.User())
	assert.Nil(t, tab.Employee())
	assert.Empty(t, tab.SelectedDepartment())

	creds := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	assert.Empty(t, creds.Get(domain.RoleAdmin))
	assert.Empty(t, creds.Get(domain.RoleEmployee))

	assert.Equal(t, 1, logouts["admin"], "exactly one LOGOUT on the admin channel")
	assert.Equal(t, 1, logouts["employee"], "exactly one LOGOUT on the employee channel")
}

func TestManager_LogoutVariantsAreAllTotal(t *testing.T) {
	t.Parallel()

	variants := []struct {
		name   string
		logout func(*Manager)
	}{
		{name: "Logout", logout: func(m *Manager) { m.Logout("") }},
		{name: "EmployeeLogout", logout: func(m *Manager) { m.EmployeeLogout("") }},
		{name: "LogoutAll", logout: func(m *Manager) { m.LogoutAll("") }},
	}

	for _, tt := range variants {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tab := newTab(t, storage.NewMemory(), broadcast.NewHub())
			tab.Login(adminIdentity(), "finance", "")
			tt.logout(tab)

			assert.Nil(t, tab.User())
			assert.Nil(t, tab.Employee())
		})
	}
}

func TestManager_SiblingLogout_PropagatesWithReason(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tabA := newTab(t, mem, hub)
	tabB := newTab(t, mem, hub)

	tabA.Login(adminIdentity(), "finance", "")
	require.True(t, tabB.IsAuthenticated(), "tab B resolves the login from storage")

	tabA.Logout("Security policy: forced sign-off")

	assert.Nil(t, tabB.User())
	assert.Nil(t, tabB.Employee())

	notice := tabB.Notice()
	assert.True(t, notice.IsOpen)
	assert.Equal(t, "Security policy: forced sign-off", notice.Reason)

	tabB.DismissNotice()
	assert.False(t, tabB.Notice().IsOpen)

	assert.False(t, tabA.Notice().IsOpen, "the originating tab shows no notice")
}

func TestManager_SiblingLogout_DefaultReason(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tabA := newTab(t, mem, hub)
	tabB := newTab(t, mem, hub)

	tabA.Login(adminIdentity(), "finance", "")
	tabA.Logout("")

	assert.Equal(t, "You have been logged out from another tab", tabB.Notice().Reason)
}

func TestManager_RemoteLogout_DoesNotReclearStorage(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tab := newTab(t, mem, hub)
	tab.Login(adminIdentity(), "finance", "")

	// A LOGOUT injected as if from a sibling whose storage clear has not
	// landed yet: the receiver must only drop in-memory state.
	msg := broadcast.NewMessage("some-other-tab", broadcast.MessageLogout)
	msg.Reason = "bye"
	require.NoError(t, hub.Publish(context.Background(), "admin", msg))

	assert.Nil(t, tab.User())
	assert.Nil(t, tab.Employee())

	creds := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	assert.NotEmpty(t, creds.Get(domain.RoleAdmin), "receiver must not touch shared storage")
	assert.NotEmpty(t, creds.Get(domain.RoleEmployee))
}

func TestManager_EmployeeLogin_AdminElevationReachesSibling(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tabA := newTab(t, mem, hub)
	tabB := newTab(t, mem, hub)

	tabA.EmployeeLogin(domain.Identity{ID: "7", Name: "Jonas Reyes", Role: "admin"}, "")

	require.NotNil(t, tabA.User(), "qualifying role elevates the employee login locally")
	assert.Equal(t, "7", tabA.User().ID)

	require.NotNil(t, tabB.User(), "sibling re-resolves from storage on LOGIN")
	assert.Equal(t, "7", tabB.User().ID)
	require.NotNil(t, tabB.Employee())
	assert.Equal(t, "7", tabB.Employee().ID)
}

func TestManager_EmployeeLogin_PlainEmployeeIsNotElevated(t *testing.T) {
	t.Parallel()

	tab := newTab(t, storage.NewMemory(), broadcast.NewHub())
	tab.EmployeeLogin(domain.Identity{ID: "7", Name: "Jonas Reyes", Role: "employee"}, "")

	assert.Nil(t, tab.User(), "employee logins need explicit elevation")
	require.NotNil(t, tab.Employee())
	assert.Equal(t, "7", tab.Employee().ID)
}

func TestManager_Startup_ResolvesStoredAdminToken(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	cfg := testCfg()
	codec := token.NewCodec(testSecret)
	tok, err := codec.Issue(domain.Claims{
		"id": "42", "name": "Maria Santos", "role": "admin", "department": "hr",
	}, token.ClassMedium)
	require.NoError(t, err)

	seed := credstore.New(mem.Handle(), cfg, zap.NewNop())
	seed.Set(domain.RoleAdmin, tok)

	tab := newTab(t, mem, broadcast.NewHub())

	require.NotNil(t, tab.User())
	assert.Equal(t, "42", tab.User().ID)
	require.NotNil(t, tab.Employee(), "admin token mirrors into the employee slot")
	assert.Equal(t, "42", tab.Employee().ID)
	assert.Equal(t, "hr", tab.SelectedDepartment())
}

func TestManager_Startup_AdminTokenWithoutRoleClaimIsIgnored(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	codec := token.NewCodec(testSecret)
	tok, err := codec.Issue(domain.Claims{"id": "42"}, token.ClassMedium)
	require.NoError(t, err)

	seed := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	seed.Set(domain.RoleAdmin, tok)

	tab := newTab(t, mem, broadcast.NewHub())

	assert.Nil(t, tab.User())
	assert.Nil(t, tab.Employee())
}

func TestManager_Startup_DiscardsUndecodableTokens(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	cfg := testCfg()
	seed := credstore.New(mem.Handle(), cfg, zap.NewNop())
	seed.Set(domain.RoleAdmin, "not.a.token")
	seed.Set(domain.RoleEmployee, "also-garbage")

	tab := newTab(t, mem, broadcast.NewHub())

	assert.Nil(t, tab.User())
	assert.Nil(t, tab.Employee())

	check := credstore.New(mem.Handle(), cfg, zap.NewNop())
	assert.Empty(t, check.Get(domain.RoleAdmin))
	assert.Empty(t, check.Get(domain.RoleEmployee))
}

func TestManager_Startup_EmployeeTokenWithAdminAccessElevates(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	codec := token.NewCodec(testSecret)
	tok, err := codec.Issue(domain.Claims{"employeeId": "7", "access_level": "manager"}, token.ClassMedium)
	require.NoError(t, err)

	seed := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	seed.Set(domain.RoleEmployee, tok)

	tab := newTab(t, mem, broadcast.NewHub())

	require.NotNil(t, tab.Employee())
	assert.Equal(t, "7", tab.Employee().ID)
	require.NotNil(t, tab.User(), "manager access level elevates on load")
}

func TestManager_Login_SurvivesStorageFailure(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	tab := newTab(t, mem, broadcast.NewHub())

	mem.FailWrites(errors.New("quota exceeded"))
	tab.Login(adminIdentity(), "finance", "")

	assert.True(t, tab.IsAuthenticated(), "storage failure degrades persistence, not live state")
	assert.True(t, tab.IsEmployeeAuthenticated())

	mem.FailWrites(nil)
	creds := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	assert.Empty(t, creds.Get(domain.RoleAdmin))
}

func TestManager_PreIssuedTokenIsStoredVerbatim(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	codec := token.NewCodec(testSecret)
	pre, err := codec.Issue(domain.Claims{"id": "42", "role": "admin"}, token.ClassShort)
	require.NoError(t, err)

	tab := newTab(t, mem, broadcast.NewHub())
	tab.Login(adminIdentity(), "finance", pre)

	creds := credstore.New(mem.Handle(), testCfg(), zap.NewNop())
	assert.Equal(t, pre, creds.Get(domain.RoleAdmin))
}

func TestManager_OnChangeAndDarkMode(t *testing.T) {
	t.Parallel()

	tab := newTab(t, storage.NewMemory(), broadcast.NewHub())

	var snaps []Snapshot
	cancel := tab.OnChange(func(s Snapshot) { snaps = append(snaps, s) })

	assert.True(t, tab.ToggleDarkMode())
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].DarkMode)

	tab.Login(adminIdentity(), "hr", "")
	require.Len(t, snaps, 2)
	require.NotNil(t, snaps[1].Admin)
	assert.Equal(t, "hr", snaps[1].SelectedDepartment)

	cancel()
	assert.False(t, tab.ToggleDarkMode())
	assert.Len(t, snaps, 2)
}

func TestManager_UnknownBroadcastTypeIsIgnored(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	hub := broadcast.NewHub()
	tab := newTab(t, mem, hub)
	tab.Login(adminIdentity(), "finance", "")

	msg := broadcast.NewMessage("some-other-tab", broadcast.MessageType("REFRESH"))
	require.NoError(t, hub.Publish(context.Background(), "admin", msg))

	assert.True(t, tab.IsAuthenticated(), "unrecognized types must be ignored, not treated as logout")
}
