package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{MaxQueryLength: 1000}))
	app.Post("/api/v1/query", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postQuery(t *testing.T, app *fiber.App, body, contentType string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestMiddlewareAllowsValidQuery(t *testing.T) {
	app := newTestApp()

	resp := postQuery(t, app, `{"query": "wetland health in Saginaw Bay"}`, "application/json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsWhitespaceOnlyQuery(t *testing.T) {
	app := newTestApp()

	resp := postQuery(t, app, `{"query": "   \t  "}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMiddlewareRejectsMissingQuery(t *testing.T) {
	app := newTestApp()

	resp := postQuery(t, app, `{}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMiddlewareRejectsOversizedQuery(t *testing.T) {
	app := newTestApp()

	long := strings.Repeat("a", 1001)
	resp := postQuery(t, app, `{"query": "`+long+`"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMiddlewareRejectsSuspiciousContent(t *testing.T) {
	testCases := []string{
		`{"query": "wetlands; DROP TABLE queries"}`,
		`{"query": "<script>alert(1)</script>"}`,
		`{"query": "1 UNION SELECT password FROM users"}`,
	}

	app := newTestApp()
	for _, body := range testCases {
		resp := postQuery(t, app, body, "application/json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestMiddlewareRejectsUnsupportedContentType(t *testing.T) {
	app := newTestApp()

	resp := postQuery(t, app, "query=wetlands", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestMiddlewareRejectsInvalidJSON(t *testing.T) {
	app := newTestApp()

	resp := postQuery(t, app, "{not json", "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
