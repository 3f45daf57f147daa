package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/catalog"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/validation"
)

const fakeAuthorizeURL = "https://idp.example/authorize"

// fakeProvider stands in for the OIDC relying party. The callback trusts the
// "sub" query parameter; an "error" parameter simulates a failed exchange.
type fakeProvider struct{}

func (fakeProvider) AuthorizeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, fakeAuthorizeURL, http.StatusFound)
	})
}

func (fakeProvider) CallbackHandler(onSubject auth.SubjectHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if errType := r.URL.Query().Get("error"); errType != "" {
			WriteError(w, r, &auth.UpstreamAuthError{Type: errType, Description: "exchange failed"})
			return
		}
		onSubject(w, r, r.URL.Query().Get("sub"))
	})
}

// fakeIdentities is an in-memory identity store keyed by subject.
type fakeIdentities struct {
	mu    sync.Mutex
	roles map[string]int
}

func newFakeIdentities(roles map[string]int) *fakeIdentities {
	if roles == nil {
		roles = map[string]int{}
	}
	return &fakeIdentities{roles: roles}
}

func (f *fakeIdentities) Login(ctx context.Context, subject string) (*auth.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rank, ok := f.roles[subject]
	if !ok {
		return nil, iam.ErrUserNotFound
	}
	role, err := auth.ParseRole(rank)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{Subject: subject, Role: role}, nil
}

func (f *fakeIdentities) Register(ctx context.Context, subject string) (*auth.Principal, error) {
	f.mu.Lock()
	if _, ok := f.roles[subject]; !ok {
		f.roles[subject] = auth.DefaultRole.Rank()
	}
	f.mu.Unlock()
	return f.Login(ctx, subject)
}

func (f *fakeIdentities) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.roles)
}

// mockCatalog is a func-field catalogService that counts every call.
type mockCatalog struct {
	mu    sync.Mutex
	calls int

	listDrinksFunc   func(ctx context.Context, opts catalog.ListOptions) ([]models.Drink, error)
	getDrinkFunc     func(ctx context.Context, id string) (*models.Drink, error)
	createDrinkFunc  func(ctx context.Context, drink *models.Drink) (string, error)
	replaceDrinkFunc func(ctx context.Context, drink *models.Drink) (*models.Drink, error)
	deleteDrinkFunc  func(ctx context.Context, id string) (catalog.DeleteResult, error)
	searchFunc       func(ctx context.Context, name string) ([]models.DrinkMatch, error)
	ingredientsFunc  func(ctx context.Context) ([]string, error)
}

var errNotMocked = errors.New("not mocked")

func (m *mockCatalog) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCatalog) ListDrinks(ctx context.Context, opts catalog.ListOptions) ([]models.Drink, error) {
	m.touch()
	if m.listDrinksFunc == nil {
		return nil, errNotMocked
	}
	return m.listDrinksFunc(ctx, opts)
}

func (m *mockCatalog) GetDrink(ctx context.Context, id string) (*models.Drink, error) {
	m.touch()
	if m.getDrinkFunc == nil {
		return nil, errNotMocked
	}
	return m.getDrinkFunc(ctx, id)
}

func (m *mockCatalog) CreateDrink(ctx context.Context, drink *models.Drink) (string, error) {
	m.touch()
	if m.createDrinkFunc == nil {
		return "", errNotMocked
	}
	return m.createDrinkFunc(ctx, drink)
}

func (m *mockCatalog) ReplaceDrink(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
	m.touch()
	if m.replaceDrinkFunc == nil {
		return nil, errNotMocked
	}
	return m.replaceDrinkFunc(ctx, drink)
}

func (m *mockCatalog) DeleteDrink(ctx context.Context, id string) (catalog.DeleteResult, error) {
	m.touch()
	if m.deleteDrinkFunc == nil {
		return catalog.DeleteResult{}, errNotMocked
	}
	return m.deleteDrinkFunc(ctx, id)
}

func (m *mockCatalog) SearchDrinks(ctx context.Context, name string) ([]models.DrinkMatch, error) {
	m.touch()
	if m.searchFunc == nil {
		return nil, errNotMocked
	}
	return m.searchFunc(ctx, name)
}

func (m *mockCatalog) Ingredients(ctx context.Context) ([]string, error) {
	m.touch()
	if m.ingredientsFunc == nil {
		return nil, errNotMocked
	}
	return m.ingredientsFunc(ctx)
}

// testEnv wires a router over the real cookie store with fakes behind it.
type testEnv struct {
	handler    http.Handler
	sessions   *auth.CookieStore
	identities *fakeIdentities
	catalog    *mockCatalog
}

func newTestEnv(t *testing.T, roles map[string]int) *testEnv {
	t.Helper()

	sessions, err := auth.NewCookieStore(auth.CookieStoreOptions{
		Secret: []byte(strings.Repeat("s", auth.MinSecretLength)),
	})
	require.NoError(t, err)

	validator, err := validation.NewSchemaValidator(8)
	require.NoError(t, err)

	env := &testEnv{
		sessions:   sessions,
		identities: newFakeIdentities(roles),
		catalog:    &mockCatalog{},
	}
	env.handler = NewRouter(RouterOptions{
		Provider:   fakeProvider{},
		Sessions:   sessions,
		Identities: env.identities,
		Catalog:    env.catalog,
		Validator:  validator,
		URLs:       FlowURLs{Home: "/home", Register: "/signup"},
	})
	return env
}

// browser carries cookies between requests the way a user agent would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, handler: e.handler, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, target string, body string) *httptest.ResponseRecorder {
	b.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

// login runs the callback for subject and returns the response.
func (b *browser) login(subject string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, "/auth?code=abc&state=xyz&sub="+subject, "")
}

func (b *browser) has(name string) bool {
	_, ok := b.cookies[name]
	return ok
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

// setCookieNames lists the cookies a response sets with a live value.
func setCookieNames(rr *httptest.ResponseRecorder) []string {
	var names []string
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
