package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c), "role": Role(c)})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAndRole(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(), RequireRole(utils.RoleOperator))

	if w := do(r, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", w.Code)
	}
	if w := do(r, map[string]string{"Authorization": "Bearer nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: got %d", w.Code)
	}

	requester, _ := utils.GenerateToken("u1", utils.RoleRequester, time.Hour)
	if w := do(r, map[string]string{"Authorization": "Bearer " + requester}); w.Code != http.StatusForbidden {
		t.Fatalf("wrong role: got %d", w.Code)
	}

	operator, _ := utils.GenerateToken("r1", utils.RoleOperator, time.Hour)
	if w := do(r, map[string]string{"Authorization": "Bearer " + operator}); w.Code != http.StatusOK {
		t.Fatalf("operator: got %d body %s", w.Code, w.Body.String())
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := newRouter(rateLimit(newRateLimiterStore(2)))

	hdr := map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}
	for i := 0; i < 2; i++ {
		if w := do(r, hdr); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}
	if w := do(r, hdr); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttling, got %d", w.Code)
	}
	if w := do(r, map[string]string{"X-Real-IP": "10.0.0.2"}); w.Code != http.StatusOK {
		t.Fatalf("other client should pass, got %d", w.Code)
	}
}
