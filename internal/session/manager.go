package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazytech/jjc-console/internal/broadcast"
	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/credstore"
	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/observability"
	"github.com/lazytech/jjc-console/internal/token"
)

const employeeIDPrefix = "EMP-"

// Snapshot is a point-in-time copy of the state readers observe.
type Snapshot struct {
	Admin              *domain.Session
	Employee           *domain.Session
	SelectedDepartment string
	DarkMode           bool
	Notice             domain.Notice
}

// Options bundles manager dependencies.
type Options struct {
	Codec       *token.Codec
	Credentials *credstore.Store
	Bus         broadcast.Broadcaster
	Session     config.SessionConfig
	Lifetime    string
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// Manager owns one instance's session state: the administrative and
// employee slots, the selected department, and the session-ended notice.
// It initializes from stored credentials, reconciles remote login/logout
// broadcasts, and is the only writer of its state. Readers go through
// the accessor methods or an OnChange subscription.
type Manager struct {
	id       string
	codec    *token.Codec
	creds    *credstore.Store
	bus      broadcast.Broadcaster
	cfg      config.SessionConfig
	lifetime string
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	admin      *domain.Session
	employee   *domain.Session
	department string
	darkMode   bool
	notice     domain.Notice
	subs       map[int]func(Snapshot)
	nextSub    int
	cancels    []func()
}

// NewManager builds a manager. Call Start to load stored credentials and
// begin listening for sibling broadcasts.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lifetime := opts.Lifetime
	if lifetime == "" {
		lifetime = token.ClassMedium
	}
	return &Manager{
		id:       uuid.NewString(),
		codec:    opts.Codec,
		creds:    opts.Credentials,
		bus:      opts.Bus,
		cfg:      opts.Session,
		lifetime: lifetime,
		logger:   logger,
		metrics:  opts.Metrics,
		subs:     make(map[int]func(Snapshot)),
	}
}

// InstanceID identifies this instance in broadcast envelopes.
func (m *Manager) InstanceID() string {
	return m.id
}

// Start populates sessions from stored credentials and subscribes to
// both broadcast channels. Initialization never leaves the instance
// partially authenticated: any failure clears credentials and both
// slots stay empty.
func (m *Manager) Start() {
	admin, employee := m.resolveStored()

	m.mu.Lock()
	m.admin = admin
	m.employee = employee
	m.department = sessionDepartment(admin, employee)
	m.cancels = append(m.cancels,
		m.bus.Subscribe(m.cfg.AdminChannel, m.remoteHandler(m.cfg.AdminChannel)),
		m.bus.Subscribe(m.cfg.EmployeeChannel, m.remoteHandler(m.cfg.EmployeeChannel)),
	)
	m.mu.Unlock()

	m.notifySubscribers()
}

// Close unregisters the broadcast listeners. State is left as-is; a
// closed manager simply stops tracking siblings.
func (m *Manager) Close() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Login establishes an administrative session for an already-validated
// identity and mirrors it into the employee slot. When no pre-issued
// token is supplied one is synthesized locally. The token lands in both
// credential slots and a LOGIN goes out on both channels, after local
// state has settled.
func (m *Manager) Login(identity domain.Identity, department string, tok string) {
	if identity.Department == "" {
		identity.Department = department
	}
	if identity.Role == "" {
		identity.Role = "admin"
	}

	mirrored := identity
	mirrored.ID = deriveEmployeeID(identity.ID)

	tok = m.ensureToken(identity, tok)

	m.mu.Lock()
	m.admin = domain.NewSession(identity)
	m.employee = domain.NewSession(mirrored)
	m.department = department
	m.mu.Unlock()

	m.storeBoth(tok)
	m.metrics.RecordSessionEvent("login", string(domain.RoleAdmin))
	m.announceLogin(identity, department)
	m.notifySubscribers()
}

// EmployeeLogin establishes an employee session. The identity is only
// elevated into the administrative slot when its role or access level
// qualifies; this asymmetry with Login is deliberate business behavior.
func (m *Manager) EmployeeLogin(identity domain.Identity, tok string) {
	if identity.Role == "" {
		identity.Role = "employee"
	}

	tok = m.ensureToken(identity, tok)

	m.mu.Lock()
	m.employee = domain.NewSession(identity)
	if identity.HasAdminAccess() {
		m.admin = domain.NewSession(identity)
	}
	if m.department == "" {
		m.department = identity.Department
	}
	m.mu.Unlock()

	m.storeBoth(tok)
	m.metrics.RecordSessionEvent("login", string(domain.RoleEmployee))
	m.announceLogin(identity, identity.Department)
	m.notifySubscribers()
}

// Logout ends both sessions, clears both credential slots, and tells
// every sibling instance. Logout is always total; there is no
// role-scoped variant.
func (m *Manager) Logout(reason string) {
	if reason == "" {
		reason = m.cfg.DefaultLogoutReason
	}

	m.mu.Lock()
	m.admin = nil
	m.employee = nil
	m.department = ""
	m.mu.Unlock()

	m.creds.Clear()
	m.metrics.RecordSessionEvent("logout", string(domain.RoleAdmin))

	for _, channel := range []string{m.cfg.AdminChannel, m.cfg.EmployeeChannel} {
		msg := broadcast.NewMessage(m.id, broadcast.MessageLogout)
		msg.Reason = reason
		m.publish(channel, msg)
	}

	m.notifySubscribers()
}

// EmployeeLogout is Logout under a different name; kept for call-site
// clarity in employee-facing screens.
func (m *Manager) EmployeeLogout(reason string) {
	m.Logout(reason)
}

// LogoutAll is Logout under a different name; kept for call-site clarity.
func (m *Manager) LogoutAll(reason string) {
	m.Logout(reason)
}

// User returns the administrative session, or nil when logged out.
func (m *Manager) User() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admin
}

// Employee returns the employee session, or nil when logged out.
func (m *Manager) Employee() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.employee
}

// SelectedDepartment returns the department picked at login.
func (m *Manager) SelectedDepartment() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.department
}

// IsAuthenticated reports whether an administrative session exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admin != nil
}

// IsEmployeeAuthenticated reports whether an employee session exists.
func (m *Manager) IsEmployeeAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.employee != nil
}

// Notice returns the current session-ended notice.
func (m *Manager) Notice() domain.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

// DismissNotice closes the session-ended notice.
func (m *Manager) DismissNotice() {
	m.mu.Lock()
	m.notice = domain.Notice{}
	m.mu.Unlock()
	m.notifySubscribers()
}

// ToggleDarkMode flips the display preference and returns the new value.
// It rides on the manager only because the UI reads everything through
// one state container; it has nothing to do with authentication.
func (m *Manager) ToggleDarkMode() bool {
	m.mu.Lock()
	m.darkMode = !m.darkMode
	val := m.darkMode
	m.mu.Unlock()
	m.notifySubscribers()
	return val
}

// DarkMode returns the display preference.
func (m *Manager) DarkMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.darkMode
}

// Snapshot returns a copy of the observable state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// OnChange registers fn to run after every state change and returns its
// unregister. fn is called synchronously with a snapshot copy.
func (m *Manager) OnChange(fn func(Snapshot)) func() {
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// resolveStored rebuilds both session slots from whatever tokens are in
// storage. Undecodable tokens are discarded slot by slot; a panic while
// reading wipes credentials entirely rather than leaving the instance
// half-authenticated.
func (m *Manager) resolveStored() (admin, employee *domain.Session) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("session init failed, clearing credentials", zap.Any("panic", r))
			m.creds.Clear()
			admin, employee = nil, nil
		}
	}()

	if tok := m.creds.Get(domain.RoleAdmin); tok != "" {
		claims := m.codec.Decode(tok)
		switch {
		case claims == nil:
			m.creds.Discard(domain.RoleAdmin)
		case claims.Has("role"):
			identity := Resolve(claims, nil)
			admin = domain.NewSession(identity)
			employee = domain.NewSession(identity)
		}
	}

	if tok := m.creds.Get(domain.RoleEmployee); tok != "" {
		claims := m.codec.Decode(tok)
		switch {
		case claims == nil:
			m.creds.Discard(domain.RoleEmployee)
		default:
			identity := Resolve(claims, nil)
			employee = domain.NewSession(identity)
			if admin == nil && identity.HasAdminAccess() {
				admin = domain.NewSession(identity)
			}
		}
	}
	return admin, employee
}

func (m *Manager) remoteHandler(channel string) broadcast.Handler {
	return func(msg broadcast.Message) {
		if msg.Origin == m.id {
			return
		}
		m.metrics.RecordBroadcast("received", channel, string(msg.Type))

		switch msg.Type {
		case broadcast.MessageLogout:
			m.remoteLogout(channel, msg)
		case broadcast.MessageLogin:
			m.remoteLogin()
		default:
			// Unknown types come from newer builds; ignore them.
		}
	}
}

// remoteLogout clears in-memory sessions only. The originating instance
// already cleared shared storage; re-clearing here would race with a
// login that may have happened in between.
func (m *Manager) remoteLogout(channel string, msg broadcast.Message) {
	reason := msg.Reason
	if reason == "" {
		reason = m.cfg.DefaultLogoutReason
	}

	m.mu.Lock()
	m.admin = nil
	m.employee = nil
	m.department = ""
	// A total logout arrives once per channel; the first message owns the
	// notice so the duplicate does not flip its user type.
	if !m.notice.IsOpen {
		m.notice = domain.Notice{IsOpen: true, Reason: reason, UserType: m.userTypeFor(channel)}
	}
	m.mu.Unlock()

	m.notifySubscribers()
}

// remoteLogin mirrors the startup path: whatever a sibling stored is
// re-read and re-resolved.
func (m *Manager) remoteLogin() {
	admin, employee := m.resolveStored()

	m.mu.Lock()
	m.admin = admin
	m.employee = employee
	m.department = sessionDepartment(admin, employee)
	m.mu.Unlock()

	m.notifySubscribers()
}

func (m *Manager) ensureToken(identity domain.Identity, tok string) string {
	if tok != "" {
		return tok
	}
	issued, err := m.codec.Issue(claimsFor(identity), m.lifetime)
	if err != nil {
		m.logger.Warn("local token issue failed; session will not persist", zap.Error(err))
		return ""
	}
	return issued
}

func (m *Manager) storeBoth(tok string) {
	if tok == "" {
		return
	}
	m.creds.Set(domain.RoleAdmin, tok)
	m.creds.Set(domain.RoleEmployee, tok)
}

func (m *Manager) announceLogin(identity domain.Identity, department string) {
	summary := &broadcast.UserSummary{ID: identity.ID, Name: identity.Name, Department: department}
	for _, channel := range []string{m.cfg.AdminChannel, m.cfg.EmployeeChannel} {
		msg := broadcast.NewMessage(m.id, broadcast.MessageLogin)
		msg.User = summary
		m.publish(channel, msg)
	}
}

func (m *Manager) publish(channel string, msg broadcast.Message) {
	if err := m.bus.Publish(context.Background(), channel, msg); err != nil {
		m.logger.Warn("broadcast publish failed", zap.String("channel", channel), zap.Error(err))
	}
	m.metrics.RecordBroadcast("sent", channel, string(msg.Type))
}

func (m *Manager) notifySubscribers() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Admin:              m.admin,
		Employee:           m.employee,
		SelectedDepartment: m.department,
		DarkMode:           m.darkMode,
		Notice:             m.notice,
	}
}

func (m *Manager) userTypeFor(channel string) string {
	if channel == m.cfg.AdminChannel {
		return string(domain.RoleAdmin)
	}
	return string(domain.RoleEmployee)
}

func claimsFor(identity domain.Identity) domain.Claims {
	claims := domain.Claims{}
	set := func(key, val string) {
		if val != "" {
			claims[key] = val
		}
	}
	set("id", identity.ID)
	set("username", identity.Username)
	set("name", identity.Name)
	set("role", identity.Role)
	set("department", identity.Department)
	set("accessLevel", identity.AccessLevel)
	if len(identity.Permissions) > 0 {
		claims["permissions"] = identity.Permissions
	}
	return claims
}

func deriveEmployeeID(id string) string {
	if id == "" || strings.HasPrefix(id, employeeIDPrefix) {
		return id
	}
	return employeeIDPrefix + id
}

func sessionDepartment(admin, employee *domain.Session) string {
	if admin != nil && admin.Department != "" {
		return admin.Department
	}
	if employee != nil {
		return employee.Department
	}
	return ""
}
