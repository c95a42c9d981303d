package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/eatcost/storefront/internal/interfaces/http/dto"
)

const (
	testUserID = int64(42)
	testToken  = "store-jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter registers the handler under /api/v1 the way the real
// router does, optionally simulating an authenticated request.
func newTestRouter(h interface {
	RegisterRoutes(rg *gin.RouterGroup)
}, authenticated bool) *gin.Engine {
	router := gin.New()
	if authenticated {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", testUserID)
			c.Set("user_email", "user@example.com")
			c.Set("jwt_token", testToken)
			c.Next()
		})
	}
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

// dataAs re-marshals the response data into a typed value
func dataAs(t *testing.T, resp dto.Response, dest any) {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	resp := decodeResponse(t, recorder)
	require.NotNil(t, resp.Error)
	require.False(t, resp.Success)
	return resp.Error.Code
}
