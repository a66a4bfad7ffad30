package middleware

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "middleware-secret", ExpireTime: time.Hour}}
}

func tokenFor(t *testing.T, cfg *config.Config, id uint, role model.UserRole) string {
	t.Helper()
	user := &model.User{Email: "u@example.com", Role: role}
	user.ID = id
	token, err := util.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	require.NoError(t, err)
	return token
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		var id uint
		if claims := util.GetUserFromContext(c); claims != nil {
			id = claims.UserID
		}
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	r := newRouter(AuthMiddleware(cfg))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer garbage").Code)

	other := &config.Config{JWT: config.JWTConfig{Secret: "another-secret", ExpireTime: time.Hour}}
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+tokenFor(t, other, 1, model.Learner)).Code)

	w := serve(r, "Bearer "+tokenFor(t, cfg, 7, model.Learner))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":7}`, w.Body.String())
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	cfg := testConfig()
	r := newRouter(AuthMiddleware(cfg))

	req := httptest.NewRequest(http.MethodGet, "/?token="+tokenFor(t, cfg, 3, model.Learner), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	cfg := testConfig()
	r := newRouter(OptionalAuth(cfg))

	w := serve(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":0}`, w.Body.String())

	// 无效 token 按匿名处理
	w = serve(r, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":0}`, w.Body.String())

	w = serve(r, "Bearer "+tokenFor(t, cfg, 9, model.Learner))
	assert.JSONEq(t, `{"userId":9}`, w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	cfg := testConfig()
	r := newRouter(AuthMiddleware(cfg), RoleMiddleware(model.Admin))

	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer "+tokenFor(t, cfg, 1, model.Learner)).Code)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer "+tokenFor(t, cfg, 2, model.Admin)).Code)

	// 未经认证直接使用角色校验
	bare := newRouter(RoleMiddleware(model.Learner))
	assert.Equal(t, http.StatusUnauthorized, serve(bare, "").Code)
}
