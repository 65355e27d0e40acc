package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/domain"
)

// SessionName is the cookie session holding the logged-in user.
const SessionName = "smartshop-session"

// Keys of the session values and of the echo context values set by Session.
const (
	UserIDContextKey = "user_id"
	RoleContextKey   = "role"
)

// NewSessionStore returns the cookie store used for login sessions.
func NewSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Session copies the logged-in user from the session cookie into the echo
// context. Requests without a valid session pass through untouched. It must
// run after session.Middleware.
func Session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(SessionName, c)
		if err == nil {
			id, idOK := sess.Values[UserIDContextKey].(int64)
			role, roleOK := sess.Values[RoleContextKey].(string)
			if idOK && roleOK {
				c.Set(UserIDContextKey, id)
				c.Set(RoleContextKey, domain.Role(role))
			}
		}
		return next(c)
	}
}

// CurrentUser returns the session user set by Session.
func CurrentUser(c echo.Context) (int64, domain.Role, bool) {
	id, ok := c.Get(UserIDContextKey).(int64)
	if !ok {
		return 0, "", false
	}
	role, _ := c.Get(RoleContextKey).(domain.Role)
	return id, role, true
}

// Login stores the user in the session cookie.
func Login(c echo.Context, user *domain.User) error {
	// An undecodable cookie still yields a fresh session to overwrite it.
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return err
	}
	sess.Values[UserIDContextKey] = user.ID
	sess.Values[RoleContextKey] = string(user.Role)
	return sess.Save(c.Request(), c.Response())
}

// Logout expires the session cookie.
func Logout(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if sess == nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// RequireRole rejects requests without a session with 401 and requests from
// another role with 403.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, current, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if current != role {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
			}
			return next(c)
		}
	}
}
