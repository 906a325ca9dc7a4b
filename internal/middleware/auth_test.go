package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// TestAuthMiddleware 测试 Bearer token 校验
func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware("s3cret-token"))
	router.GET("/api/scans", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		header   string
		apiToken string
		want     int
	}{
		{"valid token", "Bearer s3cret-token", "", http.StatusOK},
		{"missing header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret-token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer other-token", "", http.StatusUnauthorized},
		{"empty token", "Bearer ", "", http.StatusUnauthorized},
		{"api token header", "", "s3cret-token", http.StatusOK},
		{"wrong api token", "", "other-token", http.StatusUnauthorized},
		{"bearer wins over api token", "Bearer other-token", "s3cret-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/scans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.apiToken != "" {
				req.Header.Set(TokenHeader, tt.apiToken)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
