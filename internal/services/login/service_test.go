package login

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/pacing"
	"github.com/ternarybob/vigil/internal/services/registry"
	"github.com/ternarybob/vigil/internal/services/session"
)

// fakeReader scripts the mailbox code lookup.
type fakeReader struct {
	code string
	ok   bool
}

func (r *fakeReader) Read(context.Context, models.EmailAccess, time.Duration) (string, bool) {
	return r.code, r.ok
}

// fakePage scripts selector matches by query string so scenarios can model
// a rendered login page without a browser.
type fakePage struct {
	counts   map[string]int
	html     string
	title    string
	url      string
	typed    map[string]string
	clicked  []string
	navs     []string
	faulty   bool // every call returns an automation fault
	enterHit bool

	cookies        []models.Cookie
	localStorage   map[string]string
	sessionStorage map[string]string
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:         make(map[string]int),
		typed:          make(map[string]string),
		url:            "https://visa.example.com/tur/tr/deu/login",
		localStorage:   make(map[string]string),
		sessionStorage: make(map[string]string),
	}
}

func (p *fakePage) fault(op string) error {
	return &interfaces.AutomationFault{Op: op, Err: context.Canceled}
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	if p.faulty {
		return p.fault("navigate")
	}
	p.navs = append(p.navs, url)
	return nil
}

func (p *fakePage) WaitVisible(context.Context, models.Selector, time.Duration) error { return nil }

func (p *fakePage) Count(_ context.Context, sel models.Selector) (int, error) {
	if p.faulty {
		return 0, p.fault("count")
	}
	return p.counts[sel.Query], nil
}

func (p *fakePage) Texts(_ context.Context, sel models.Selector, _ int) ([]string, error) {
	return nil, nil
}

func (p *fakePage) Click(_ context.Context, sel models.Selector) error {
	if p.faulty {
		return p.fault("click")
	}
	p.clicked = append(p.clicked, sel.Query)
	return nil
}

func (p *fakePage) TypeHuman(_ context.Context, sel models.Selector, text string, _ func() time.Duration) error {
	if p.faulty {
		return p.fault("type")
	}
	p.typed[sel.Query] = text
	return nil
}

func (p *fakePage) PressEnter(context.Context) error {
	p.enterHit = true
	return nil
}

func (p *fakePage) MouseMove(context.Context, float64, float64) error { return nil }
func (p *fakePage) ScrollBy(context.Context, int) error               { return nil }

func (p *fakePage) Title(context.Context) (string, error) { return p.title, nil }
func (p *fakePage) URL(context.Context) (string, error)   { return p.url, nil }
func (p *fakePage) HTML(context.Context) (string, error) {
	if p.faulty {
		return "", p.fault("html")
	}
	return p.html, nil
}

func (p *fakePage) Cookies(context.Context) ([]models.Cookie, error) { return p.cookies, nil }
func (p *fakePage) SetCookies(_ context.Context, cookies []models.Cookie) error {
	p.cookies = append(p.cookies, cookies...)
	return nil
}
func (p *fakePage) StorageState(_ context.Context, area string) (map[string]string, error) {
	if area == "sessionStorage" {
		return p.sessionStorage, nil
	}
	return p.localStorage, nil
}
func (p *fakePage) SetStorageState(_ context.Context, area string, values map[string]string) error {
	target := p.localStorage
	if area == "sessionStorage" {
		target = p.sessionStorage
	}
	for k, v := range values {
		target[k] = v
	}
	return nil
}
func (p *fakePage) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (p *fakePage) Close() error                               { return nil }

type fakeBrowser struct {
	page *fakePage
}

func (b *fakeBrowser) NewPage(context.Context) (interfaces.Page, error) { return b.page, nil }
func (b *fakeBrowser) Close() error                                     { return nil }

// memoryStorage backs the session service in tests.
type memoryStorage struct {
	records map[string]*models.SessionRecord
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{records: make(map[string]*models.SessionRecord)}
}

func (m *memoryStorage) Put(_ context.Context, record *models.SessionRecord) error {
	copied := *record
	m.records[record.Key()] = &copied
	return nil
}

func (m *memoryStorage) Get(_ context.Context, userID, targetID string) (*models.SessionRecord, error) {
	record, ok := m.records[models.SessionKey(userID, targetID)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *memoryStorage) Delete(_ context.Context, userID, targetID string) error {
	delete(m.records, models.SessionKey(userID, targetID))
	return nil
}

func (m *memoryStorage) List(_ context.Context) ([]*models.SessionRecord, error) {
	var out []*models.SessionRecord
	for _, r := range m.records {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

func newTestService(reader CodeReader, otpConfig common.OTPConfig, storage interfaces.SessionStorage) *Service {
	logger := arbor.NewLogger()
	pacingSvc := pacing.NewService(common.PacingConfig{Fast: true}, logger)
	sessionSvc := session.NewService(storage, common.ScannerConfig{SessionTTLHours: 24}, logger)
	return NewService(reader, pacingSvc, sessionSvc, otpConfig, logger)
}

// loginReadyPage scripts a page where the whole flow can succeed.
func loginReadyPage() *fakePage {
	page := newFakePage()
	page.html = "<html><body>login form</body></html>"
	page.counts[`input[type="email"]`] = 1
	page.counts[`input[type="password"]`] = 1
	page.counts[`button[type="submit"]`] = 1
	page.counts[`input[type="text"][maxlength="6"]`] = 1
	page.counts["Dashboard"] = 1
	return page
}

var testCreds = models.Credentials{Email: "user@example.com", Password: "secret"}
var testMailbox = models.EmailAccess{Address: "user@example.com", Password: "app-pass"}

func testTarget() models.TargetConfig {
	return registry.NewService().Get("deu")
}

func TestLoginSucceedsWithAutoOTP(t *testing.T) {
	page := loginReadyPage()
	svc := newTestService(&fakeReader{code: "483920", ok: true}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	require.True(t, outcome.Success, outcome.Message)
	assert.Equal(t, models.OTPAuto, outcome.OTPMethod)
	assert.Equal(t, models.StageComplete, outcome.Stage)
	assert.Equal(t, "user@example.com", page.typed[`input[type="email"]`])
	assert.Equal(t, "secret", page.typed[`input[type="password"]`])
	assert.Equal(t, "483920", page.typed[`input[type="text"][maxlength="6"]`])
	require.NotEmpty(t, page.navs)
	assert.True(t, strings.HasSuffix(page.navs[0], "/deu/login"))
}

func TestLoginMaintenanceIsTerminalAndDistinct(t *testing.T) {
	page := loginReadyPage()
	page.counts["Maintenance"] = 1
	svc := newTestService(&fakeReader{}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	assert.False(t, outcome.Success)
	assert.True(t, outcome.Maintenance)
	assert.Equal(t, models.OTPMaintenance, outcome.OTPMethod)
	assert.Equal(t, models.StageMaintenance, outcome.Stage)
	// Maintenance must stop the flow before any credential entry
	assert.Empty(t, page.typed)
}

func TestLoginMissingEmailFieldFails(t *testing.T) {
	page := loginReadyPage()
	page.counts[`input[type="email"]`] = 0
	svc := newTestService(&fakeReader{code: "111111", ok: true}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	assert.False(t, outcome.Success)
	assert.Equal(t, models.StageFieldNotFound, outcome.Stage)
}

func TestLoginEnterFallbackWhenNoSubmitButton(t *testing.T) {
	page := loginReadyPage()
	page.counts[`button[type="submit"]`] = 0
	svc := newTestService(&fakeReader{code: "483920", ok: true}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	require.True(t, outcome.Success, outcome.Message)
	assert.True(t, page.enterHit)
}

func TestLoginWithoutMailboxFailsFast(t *testing.T) {
	page := loginReadyPage()
	svc := newTestService(&fakeReader{}, common.OTPConfig{ManualOTP: false}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, models.EmailAccess{})

	assert.False(t, outcome.Success)
	assert.Equal(t, models.StageOTPMissing, outcome.Stage)
	assert.Contains(t, outcome.Message, "manual_otp")
}

func TestLoginOTPTimeoutFails(t *testing.T) {
	page := loginReadyPage()
	svc := newTestService(&fakeReader{ok: false}, common.OTPConfig{WaitTimeout: time.Second}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	assert.False(t, outcome.Success)
	assert.Equal(t, models.StageOTPMissing, outcome.Stage)
}

func TestLoginBrowserClosedIsDistinctFailure(t *testing.T) {
	page := loginReadyPage()
	page.faulty = true
	svc := newTestService(&fakeReader{}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	assert.False(t, outcome.Success)
	assert.Equal(t, models.StageBrowserClosed, outcome.Stage)
}

func TestLoginAlreadyLoggedInRedirect(t *testing.T) {
	page := loginReadyPage()
	page.url = "https://visa.example.com/tur/tr/deu/dashboard"
	svc := newTestService(&fakeReader{}, common.OTPConfig{}, newMemoryStorage())

	outcome := svc.Login(context.Background(), page, testTarget(), testCreds, testMailbox)

	require.True(t, outcome.Success)
	assert.Equal(t, models.OTPSession, outcome.OTPMethod)
	assert.Empty(t, page.typed)
}

func TestEnsureLoggedInReusesValidSession(t *testing.T) {
	storage := newMemoryStorage()
	svc := newTestService(&fakeReader{}, common.OTPConfig{}, storage)
	ctx := context.Background()

	// A prior login saved state for this user/target
	seed := loginReadyPage()
	seed.cookies = []models.Cookie{{Name: "auth", Value: "tok"}}
	require.NoError(t, svc.session.Save(ctx, seed, "user-1", "deu"))

	page := loginReadyPage()
	browser := &fakeBrowser{page: page}

	got, isNew, err := svc.EnsureLoggedIn(ctx, browser, testTarget(), "user-1", testCreds, testMailbox)

	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Same(t, interfaces.Page(page), got)
	// Session path navigates to the dashboard, never the login page
	require.NotEmpty(t, page.navs)
	assert.True(t, strings.HasSuffix(page.navs[0], "/deu/dashboard"))
	assert.Empty(t, page.typed)
}

func TestEnsureLoggedInFreshLoginPersistsSession(t *testing.T) {
	storage := newMemoryStorage()
	svc := newTestService(&fakeReader{code: "483920", ok: true}, common.OTPConfig{}, storage)
	ctx := context.Background()

	page := loginReadyPage()
	page.cookies = []models.Cookie{{Name: "auth", Value: "fresh"}}
	browser := &fakeBrowser{page: page}

	_, isNew, err := svc.EnsureLoggedIn(ctx, browser, testTarget(), "user-1", testCreds, testMailbox)

	require.NoError(t, err)
	assert.True(t, isNew)

	record, err := storage.Get(ctx, "user-1", "deu")
	require.NoError(t, err)
	assert.True(t, record.IsValid(time.Now()))
}

func TestEnsureLoggedInLoginFailureReturnsFlowError(t *testing.T) {
	svc := newTestService(&fakeReader{}, common.OTPConfig{}, newMemoryStorage())

	page := loginReadyPage()
	page.counts[`input[type="email"]`] = 0
	browser := &fakeBrowser{page: page}

	_, _, err := svc.EnsureLoggedIn(context.Background(), browser, testTarget(), "user-1", testCreds, models.EmailAccess{})

	require.Error(t, err)
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, models.StageFieldNotFound, flowErr.Outcome.Stage)
}
