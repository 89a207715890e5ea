package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"logistics-backend/internal/shared/auth"
	"logistics-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(os.Stdout)

	verifier := newTestVerifier(t)
	token, err := verifier.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-1"}}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	router := gin.New()
	router.Use(RequestID(), Auth(verifier), Logging())
	router.POST("/test", func(c *gin.Context) {
		c.Set(EntityIDKey, "carrier-1")
		c.Set(CategoryKey, "vergi")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "entity_id", "category", "duration_ms", "status", "msg", "ts"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["msg"] != "request.complete" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["user_id"] != "ops-1" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["entity_id"] != "carrier-1" {
		t.Fatalf("unexpected entity_id: %v", payload["entity_id"])
	}
	if payload["category"] != "vergi" {
		t.Fatalf("unexpected category: %v", payload["category"])
	}
}
