package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"veilchat-server/chat-api/internal/utils/platformerrors"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated X-Request-Id on the response")
	}
}

func TestRequestID_ReachesErrorsRaisedDownstream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var captured *platformerrors.PlatformError
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/fail", func(c *gin.Context) {
		captured = platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, "boom", nil, "")
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("X-Request-Id", "req-42")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	if captured == nil {
		t.Fatalf("handler did not run")
	}
	if captured.RequestID != "req-42" {
		t.Fatalf("expected error to carry request id req-42, got %q", captured.RequestID)
	}
}
