package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cod-inventory/internal/common"
	"serotonyl.ru/cod-inventory/internal/features/auth"
	"serotonyl.ru/cod-inventory/internal/features/catalog"
	"serotonyl.ru/cod-inventory/internal/features/inventory"
	"serotonyl.ru/cod-inventory/internal/features/players"
	"serotonyl.ru/cod-inventory/internal/features/stats"
)

const goodToken = "good-token"

type fakeAuth struct{}

func (fakeAuth) Authenticate(token string) (int64, error) {
	if token == goodToken {
		return 1, nil
	}
	return 0, common.ErrUnauthorized
}

func (fakeAuth) Refresh(_ context.Context, refresh string) (string, error) {
	if refresh == "live" {
		return "new-access", nil
	}
	return "", common.ErrUnauthorized
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) (*stats.Health, error) {
	if f.err != nil {
		return &stats.Health{Status: stats.StatusDegraded}, f.err
	}
	return &stats.Health{Status: stats.StatusHealthy, TotalWeapons: 5, TotalPlayers: 2}, nil
}

type fakeCatalog struct {
	created []*catalog.Weapon
}

func (f *fakeCatalog) List(context.Context) ([]*catalog.Weapon, error) {
	return []*catalog.Weapon{{ID: 1, Name: "M4A1", Price: decimal.NewFromInt(30)}}, nil
}

func (f *fakeCatalog) Create(_ context.Context, w *catalog.Weapon) error {
	if err := catalog.Validate(w); err != nil {
		return err
	}
	w.ID = 99
	f.created = append(f.created, w)
	return nil
}

type fakePlayers struct {
	player *players.Player
	err    error
}

func (f *fakePlayers) Register(_ context.Context, in players.RegisterInput) (*players.Player, *auth.TokenPair, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &players.Player{ID: 2, Username: in.Username}, &auth.TokenPair{Refresh: "r", Access: "a"}, nil
}

func (f *fakePlayers) Login(context.Context, string, string) (*players.Player, *auth.TokenPair, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.player, &auth.TokenPair{Refresh: "r", Access: "a"}, nil
}

func (f *fakePlayers) Profile(context.Context, int64) (*players.Player, error) {
	return f.player, nil
}

type purchaseArgs struct {
	weaponID int64
	quantity int
}

type fakeInventory struct {
	purchaseErr error
	removeErr   error
	calls       []purchaseArgs
}

func (f *fakeInventory) Purchase(_ context.Context, _, weaponID int64, quantity int) (*inventory.PurchaseResult, error) {
	f.calls = append(f.calls, purchaseArgs{weaponID, quantity})
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return &inventory.PurchaseResult{
		Weapon:         &catalog.Weapon{ID: weaponID, Name: "M4A1", Price: decimal.NewFromInt(30)},
		Quantity:       quantity,
		TotalQuantity:  quantity + 1,
		RemainingCoins: decimal.RequireFromString("40.5"),
	}, nil
}

func (f *fakeInventory) Remove(context.Context, int64, int64) (string, error) {
	if f.removeErr != nil {
		return "", f.removeErr
	}
	return "M4A1", nil
}

func (f *fakeInventory) List(context.Context, int64) ([]*inventory.Entry, error) {
	return []*inventory.Entry{{ID: 7, WeaponID: 1, WeaponName: "M4A1", Quantity: 2}}, nil
}

type testEnv struct {
	server    *Server
	catalog   *fakeCatalog
	players   *fakePlayers
	inventory *fakeInventory
}

func newEnv() *testEnv {
	env := &testEnv{
		catalog:   &fakeCatalog{},
		players:   &fakePlayers{player: &players.Player{ID: 1, Username: "price", Coins: decimal.NewFromInt(100)}},
		inventory: &fakeInventory{},
	}
	env.server = New(Deps{
		Health:    fakeHealth{},
		Catalog:   env.catalog,
		Players:   env.players,
		Inventory: env.inventory,
		Auth:      fakeAuth{},
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, authed bool) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+goodToken)
	}

	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	env := newEnv()
	status, body := env.do(t, http.MethodGet, "/", "", false)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", body["status"])
	require.EqualValues(t, 5, body["total_weapons"])

	env.server = New(Deps{Health: fakeHealth{err: errors.New("db down")}, Auth: fakeAuth{}})
	status, body = env.do(t, http.MethodGet, "/", "", false)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "degraded", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newEnv()
	for _, path := range []string{"/weapons/", "/profile/", "/inventory/"} {
		status, body := env.do(t, http.MethodGet, path, "", false)
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, "UNAUTHORIZED", errorCode(body))
	}

	req := httptest.NewRequest(http.MethodGet, "/profile/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	resp, err := env.server.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPurchase(t *testing.T) {
	env := newEnv()

	status, body := env.do(t, http.MethodPost, "/inventory/add/", `{"weapon_id": 3}`, true)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, []purchaseArgs{{3, 1}}, env.inventory.calls)
	require.EqualValues(t, 2, body["quantity"])
	require.EqualValues(t, 40.5, body["remaining_coins"])
	require.Contains(t, body["message"], "M4A1")

	status, body = env.do(t, http.MethodPost, "/inventory/add/", `{"quantity": 2}`, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_ARGUMENT", errorCode(body))

	status, _ = env.do(t, http.MethodPost, "/inventory/add/", `{not json`, true)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestPurchaseErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", &common.InsufficientFundsError{Required: decimal.NewFromInt(30), Available: decimal.NewFromInt(10)}, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
		{"unknown weapon", common.NotFound("оружие (id=3)"), http.StatusNotFound, "NOT_FOUND"},
		{"bad quantity", common.Invalid("quantity"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv()
			env.inventory.purchaseErr = tt.err
			status, body := env.do(t, http.MethodPost, "/inventory/add/", `{"weapon_id": 3, "quantity": 1}`, true)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, errorCode(body))
		})
	}

	env := newEnv()
	env.inventory.purchaseErr = &common.InsufficientFundsError{Required: decimal.NewFromInt(30), Available: decimal.NewFromInt(10)}
	_, body := env.do(t, http.MethodPost, "/inventory/add/", `{"weapon_id": 3}`, true)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	require.Equal(t, "30.00", details["required"])
	require.Equal(t, "10.00", details["available"])
}

func TestRemove(t *testing.T) {
	env := newEnv()

	status, body := env.do(t, http.MethodDelete, "/inventory/remove/1/", "", true)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body["message"], "M4A1")

	env.inventory.removeErr = common.NotFound("оружие в инвентаре")
	status, body = env.do(t, http.MethodDelete, "/inventory/remove/1/", "", true)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = env.do(t, http.MethodDelete, "/inventory/remove/abc/", "", true)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestInventoryAndProfile(t *testing.T) {
	env := newEnv()

	status, body := env.do(t, http.MethodGet, "/inventory/", "", true)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "price", body["player"])
	require.EqualValues(t, 1, body["total_weapons"])
	entry := body["inventory"].([]any)[0].(map[string]any)
	require.Equal(t, "M4A1", entry["weapon_name"])
	require.EqualValues(t, 1, entry["weapon"])

	status, body = env.do(t, http.MethodGet, "/profile/", "", true)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "price", body["username"])
	require.EqualValues(t, 100, body["coins"])
	require.NotContains(t, body, "PasswordHash")
}

func TestCreateWeaponRequiresStaff(t *testing.T) {
	env := newEnv()
	weapon := `{"name":"Barrett .50cal","weapon_type":"sniper_rifle","damage":95,"range":100,"accuracy":70,"rarity":"legendary","price":450}`

	status, body := env.do(t, http.MethodPost, "/weapons/", weapon, true)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", errorCode(body))

	env.players.player.IsStaff = true
	status, body = env.do(t, http.MethodPost, "/weapons/", weapon, true)
	require.Equal(t, http.StatusCreated, status)
	require.EqualValues(t, 99, body["id"])
	require.Len(t, env.catalog.created, 1)

	status, body = env.do(t, http.MethodPost, "/weapons/", `{"name":"X","weapon_type":"laser","rarity":"common","price":1}`, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_ARGUMENT", errorCode(body))
}

func TestRegisterLoginRefresh(t *testing.T) {
	env := newEnv()

	status, body := env.do(t, http.MethodPost, "/register/", `{"username":"soap","password":"bravo-six","password_confirm":"bravo-six"}`, false)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "soap", body["player"].(map[string]any)["username"])
	require.Equal(t, "a", body["tokens"].(map[string]any)["access"])

	status, _ = env.do(t, http.MethodPost, "/login/", `{"username":"price","password":"x"}`, false)
	require.Equal(t, http.StatusOK, status)

	env.players.err = common.ErrTooManyAttempts
	status, body = env.do(t, http.MethodPost, "/login/", `{"username":"price","password":"x"}`, false)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "TOO_MANY_ATTEMPTS", errorCode(body))

	status, body = env.do(t, http.MethodPost, "/token/refresh/", `{"refresh":"live"}`, false)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "new-access", body["access"])

	status, _ = env.do(t, http.MethodPost, "/token/refresh/", `{"refresh":"stale"}`, false)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestUnknownRoute(t *testing.T) {
	env := newEnv()
	status, body := env.do(t, http.MethodGet, "/nope/", "", false)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(body))
}
