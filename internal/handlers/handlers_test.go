package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/database"
	"github.com/nfrund/smartshop/internal/domain"
	"github.com/nfrund/smartshop/internal/handlers"
	"github.com/nfrund/smartshop/internal/market"
	"github.com/nfrund/smartshop/internal/middleware"
	"github.com/nfrund/smartshop/internal/rendering"
	"github.com/nfrund/smartshop/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	e     *echo.Echo
	store *database.MemoryStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := testutils.ConfigForTests(t)
	store := testutils.SeededStore(t, cfg)
	svc := market.NewService(store)

	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.Use(session.Middleware(middleware.NewSessionStore(cfg.SessionSecret)))
	e.Use(middleware.Session)

	auth := handlers.NewAuthHandler(svc)
	mkt := handlers.NewMarketHandler(svc)
	admin := handlers.NewAdminHandler(svc, rendering.NewUniversalRenderer())

	e.POST("/api/login", auth.Login)
	e.POST("/api/logout", auth.Logout)
	e.GET("/api/me", auth.Me)
	e.GET("/api/products", mkt.Products)
	e.GET("/api/product/:id/history", mkt.History)
	e.GET("/api/stats", mkt.Stats)
	e.POST("/api/buy", mkt.Buy)
	e.POST("/api/recommendations", mkt.Recommendations)

	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	e.GET("/api/admin/monitor", admin.MonitorJSON, adminOnly)
	e.GET("/admin", admin.MonitorPage, adminOnly)
	e.GET("/admin/monitor/fragment", admin.MonitorFragment, adminOnly)

	return &fixture{e: e, store: store}
}

func (f *fixture) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// login logs in and returns the user and its session cookie.
func (f *fixture) login(t *testing.T, body string) (handlers.UserResponse, *http.Cookie) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/login", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user handlers.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionName {
			return user, c
		}
	}
	t.Fatal("login did not set a session cookie")
	return user, nil
}

func (f *fixture) productID(t *testing.T, name string) int64 {
	t.Helper()
	p, err := f.store.FindProductByName(context.Background(), name)
	require.NoError(t, err)
	return p.ID
}

func TestLogin(t *testing.T) {
	f := setup(t)

	t.Run("new player", func(t *testing.T) {
		user, _ := f.login(t, `{"role":"player","collegeId":"CS-1","password":"pw"}`)
		assert.Equal(t, "CS-1", user.Username)
		assert.Equal(t, domain.RolePlayer, user.Role)
		assert.Equal(t, 50000.0, user.Coins)
		assert.Equal(t, 0, user.Points)
		assert.Equal(t, 2, user.RecoTries)
	})

	t.Run("missing role means player", func(t *testing.T) {
		user, _ := f.login(t, `{"collegeId":"CS-2","password":"pw"}`)
		assert.Equal(t, domain.RolePlayer, user.Role)
	})

	t.Run("admin", func(t *testing.T) {
		user, _ := f.login(t, `{"role":"admin","email":"admin@smartshop.com","password":"adminpassword"}`)
		assert.Equal(t, "admin@smartshop.com", user.Username)
		assert.Equal(t, 999999.0, user.Coins)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/login", `{"role":"player","collegeId":"CS-1","password":"other"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid Credentials"}`, rec.Body.String())
	})

	t.Run("unknown admin", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/login", `{"role":"admin","email":"x@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	badBodies := map[string]string{
		"malformed json":         `{"role":`,
		"missing password":       `{"role":"player","collegeId":"CS-3"}`,
		"admin without email":    `{"role":"admin","password":"pw"}`,
		"player without college": `{"role":"player","password":"pw"}`,
		"unknown role":           `{"role":"moderator","collegeId":"CS-3","password":"pw"}`,
	}
	for name, body := range badBodies {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/login", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user, cookie := f.login(t, `{"collegeId":"CS-ME","password":"pw"}`)
	rec = f.do(http.MethodGet, "/api/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me handlers.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, user, me)

	rec = f.do(http.MethodPost, "/api/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestProducts(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 5)

	first := products[0]
	assert.Equal(t, "iPhone 15 Pro", first["name"])
	assert.Equal(t, 80000.0, first["price"])
	assert.Equal(t, 80000.0, first["basePrice"])
	assert.Equal(t, 5.0, first["stock"])
	assert.Equal(t, 500.0, first["points"])
	assert.Equal(t, "Titanium design.", first["description"])
	assert.Contains(t, first["image"], "images.unsplash.com")
	assert.Equal(t, "Apple (Fruit)", products[4]["name"])
}

func TestHistory(t *testing.T) {
	f := setup(t)
	id := f.productID(t, "DSA Book")

	rec := f.do(http.MethodGet, "/api/product/abc/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = f.do(http.MethodGet, "/api/product/999/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	user, _ := f.login(t, `{"collegeId":"CS-H","password":"pw"}`)
	rec = f.do(http.MethodPost, "/api/buy", `{"userId":`+jsonInt(user.ID)+`,"productId":`+jsonInt(id)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/product/"+jsonInt(id)+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var points []handlers.PricePointResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 2)
	assert.Equal(t, 4000.0, points[0].Price)
	assert.Equal(t, 4200.0, points[1].Price)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, points[1].Time)
}

func TestBuy(t *testing.T) {
	f := setup(t)
	book := f.productID(t, "DSA Book")
	phone := f.productID(t, "iPhone 15 Pro")

	player, cookie := f.login(t, `{"collegeId":"CS-B","password":"pw"}`)
	other, _ := f.login(t, `{"collegeId":"CS-O","password":"pw"}`)
	admin, adminCookie := f.login(t, `{"role":"admin","email":"admin@smartshop.com","password":"adminpassword"}`)

	t.Run("body user without session", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/buy", `{"userId":`+jsonInt(player.ID)+`,"productId":`+jsonInt(book)+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Success","new_coins":46000,"new_points":30}`, rec.Body.String())
	})

	t.Run("session user without body user", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/buy", `{"productId":`+jsonInt(book)+`}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Success","new_coins":41800,"new_points":60}`, rec.Body.String())
	})

	t.Run("body user must match the session", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/buy", `{"userId":`+jsonInt(other.ID)+`,"productId":`+jsonInt(book)+`}`, cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())
	})

	rejected := []struct {
		name    string
		body    string
		cookies []*http.Cookie
	}{
		{name: "too few coins", body: `{"userId":` + jsonInt(player.ID) + `,"productId":` + jsonInt(phone) + `}`},
		{name: "admin", body: `{"productId":` + jsonInt(book) + `}`, cookies: []*http.Cookie{adminCookie}},
		{name: "admin by body", body: `{"userId":` + jsonInt(admin.ID) + `,"productId":` + jsonInt(book) + `}`},
		{name: "unknown product", body: `{"userId":` + jsonInt(player.ID) + `,"productId":999}`},
		{name: "unknown user", body: `{"userId":999,"productId":` + jsonInt(book) + `}`},
		{name: "no user at all", body: `{"productId":` + jsonInt(book) + `}`},
		{name: "missing product", body: `{"userId":` + jsonInt(player.ID) + `}`},
		{name: "malformed", body: `{"userId":`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/buy", tt.body, tt.cookies...)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Cannot purchase"}`, rec.Body.String())
		})
	}
}

func TestRecommendations(t *testing.T) {
	f := setup(t)
	player, cookie := f.login(t, `{"collegeId":"CS-R","password":"pw"}`)
	other, _ := f.login(t, `{"collegeId":"CS-R2","password":"pw"}`)

	rec := f.do(http.MethodPost, "/api/recommendations", `{"userId":`+jsonInt(player.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Plan      []domain.PlanStep `json:"plan"`
		TriesLeft int               `json:"tries_left"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TriesLeft)
	require.Len(t, body.Plan, 5)
	assert.Equal(t, 1, body.Plan[0].Step)
	assert.Equal(t, "DSA Book", body.Plan[0].ProductName)
	assert.Equal(t, 4000.0, body.Plan[0].Cost)

	rec = f.do(http.MethodPost, "/api/recommendations", `{"userId":`+jsonInt(other.ID)+`}`, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/recommendations", `{}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tries_left":0`)

	rec = f.do(http.MethodPost, "/api/recommendations", `{}`, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"No tries left"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/recommendations", `{"userId":999}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"No tries left"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	f := setup(t)
	a, _ := f.login(t, `{"collegeId":"A","password":"pw"}`)
	b, _ := f.login(t, `{"collegeId":"B","password":"pw"}`)
	f.login(t, `{"role":"admin","email":"admin@smartshop.com","password":"adminpassword"}`)

	rec := f.do(http.MethodPost, "/api/buy", `{"userId":`+jsonInt(b.ID)+`,"productId":`+jsonInt(f.productID(t, "Servo Motor"))+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPost, "/api/buy", `{"userId":`+jsonInt(a.ID)+`,"productId":`+jsonInt(f.productID(t, "Apple (Fruit)"))+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"leaderboard":[
		{"username":"B","coins":48800,"points":10},
		{"username":"A","coins":49800,"points":2}
	]}`, rec.Body.String())
}

func TestAdminMonitor(t *testing.T) {
	f := setup(t)
	_, adminCookie := f.login(t, `{"role":"admin","email":"admin@smartshop.com","password":"adminpassword"}`)
	_, playerCookie := f.login(t, `{"collegeId":"CS-M","password":"pw"}`)

	rec := f.do(http.MethodGet, "/api/admin/monitor", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/monitor", "", playerCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/monitor", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap market.MonitorSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Products, 5)
	assert.Equal(t, 400000.0, snap.Products[0].RevenuePotential)
	assert.Equal(t, 1, snap.PlayerCount)
	assert.Zero(t, snap.TotalTransactions)

	rec = f.do(http.MethodGet, "/admin", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Market Monitor - SmartShop</title>")
	assert.Contains(t, rec.Body.String(), `hx-trigger="every 2s"`)

	rec = f.do(http.MethodGet, "/admin/monitor/fragment", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<div id="monitor"`))
	assert.Contains(t, rec.Body.String(), "400,000.00")
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
