package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"profile_hub/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(testSecret))
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := auth.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestAuthMiddleware_ValidCookie(t *testing.T) {
	router := setupAuthRouter()

	userID := "64f1b2a3c4d5e6f708192a3b"
	token, err := auth.GenerateToken(userID, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID)
}

func TestAuthMiddleware_ValidBearerHeader(t *testing.T) {
	router := setupAuthRouter()

	token, err := auth.GenerateToken("64f1b2a3c4d5e6f708192a3b", testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := setupAuthRouter()

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Login required")
}

// Expired, malformed, and badly-signed tokens must be indistinguishable to
// the caller.
func TestAuthMiddleware_UniformFailureBody(t *testing.T) {
	router := setupAuthRouter()

	wrongSecretToken, err := auth.GenerateToken("64f1b2a3c4d5e6f708192a3b", "another-secret")
	require.NoError(t, err)

	tokens := map[string]string{
		"malformed":  "not-a-jwt",
		"bad secret": wrongSecretToken,
	}

	bodies := map[string]bool{}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: token})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			bodies[w.Body.String()] = true
		})
	}

	assert.Len(t, bodies, 1, "all token failures should produce the same body")
}
