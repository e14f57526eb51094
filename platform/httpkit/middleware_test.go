package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type cronAuthConfig struct {
	secret string
}

func (c cronAuthConfig) GetCronAuthSecret() string { return c.secret }

func cronAuthEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CronAuth(cronAuthConfig{secret: secret}))
	engine.GET("/job", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestCronAuth_ValidTokenPasses(t *testing.T) {
	engine := cronAuthEngine("secret")

	req := httptest.NewRequest(http.MethodGet, "/job", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret"))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCronAuth_MissingTokenRejected(t *testing.T) {
	engine := cronAuthEngine("secret")

	req := httptest.NewRequest(http.MethodGet, "/job", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCronAuth_WrongSecretRejected(t *testing.T) {
	engine := cronAuthEngine("secret")

	req := httptest.NewRequest(http.MethodGet, "/job", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other"))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCronAuth_ExpiredTokenRejected(t *testing.T) {
	engine := cronAuthEngine("secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/job", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCronAuth_NoSecretSkipsCheck(t *testing.T) {
	engine := cronAuthEngine("")

	req := httptest.NewRequest(http.MethodGet, "/job", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
