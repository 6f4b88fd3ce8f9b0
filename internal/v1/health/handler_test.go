package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turbowire/turbowire/internal/v1/registry"
)

func performGet(handler gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", path, nil)

	handler(c)
	return w
}

func TestHealth_AlwaysOK(t *testing.T) {
	// Nil queue service: memory-only mode is still healthy.
	handler := NewHandler(nil, registry.New(nil))

	w := performGet(handler.Health, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"all good!"}`, w.Body.String())
}

func TestStats_ReportsGauges(t *testing.T) {
	reg := registry.New(nil)
	handler := NewHandler(nil, reg)

	ctx := context.Background()
	reg.Register(ctx, "c1", registry.NewOutbox(), "r1")
	reg.Register(ctx, "c2", registry.NewOutbox(), "r1")
	reg.Register(ctx, "c3", registry.NewOutbox(), "r2")

	w := performGet(handler.Stats, "/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":3,"rooms":2}`, w.Body.String())
}

func TestStats_DecreasesAfterCleanup(t *testing.T) {
	reg := registry.New(nil)
	handler := NewHandler(nil, reg)

	ctx := context.Background()
	reg.Register(ctx, "c1", registry.NewOutbox(), "r4")
	reg.Deregister("r4", "c1")

	w := performGet(handler.Stats, "/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":0,"rooms":0}`, w.Body.String())
}
