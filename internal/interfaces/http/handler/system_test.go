package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSystemHandler(t *testing.T) (*SystemHandler, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSystemHandler(client, "1.2.3"), mr
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h, _ := setupSystemHandler(t)
	router := newTestRouter(h, false)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/system/info", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var got SystemInfoResponse
	dataAs(t, decodeResponse(t, recorder), &got)
	assert.Equal(t, "Storefront API", got.Name)
	assert.Equal(t, "1.2.3", got.Version)
	assert.NotEmpty(t, got.GoVersion)
}

func TestSystemHandler_Ping(t *testing.T) {
	h, _ := setupSystemHandler(t)
	router := newTestRouter(h, false)

	recorder := performRequest(t, router, http.MethodGet, "/api/v1/system/ping", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var got map[string]string
	dataAs(t, decodeResponse(t, recorder), &got)
	assert.Equal(t, "pong", got["message"])
}

func TestSystemHandler_Health(t *testing.T) {
	h, mr := setupSystemHandler(t)

	router := gin.New()
	router.GET("/health", h.Health)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	mr.Close()

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
