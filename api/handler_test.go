// convkit/api/handler_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convkit/blob"
	"convkit/config"
	"convkit/fetch"
	"convkit/gallery"
	"convkit/session"
	"convkit/throttle"
	"convkit/tools"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Zero throttle thresholds never refuse work.
	cfg := &config.Config{
		AuthEnable:   false,
		MaxFetchSize: 1 << 20,
		FetchTimeout: 5 * time.Second,
	}
	store := blob.NewMemStore()
	registry := tools.NewRegistry(store)
	sessions := session.NewManager(registry, time.Hour)
	sessions.Start()
	t.Cleanup(sessions.Stop)

	router := SetupRouter(Deps{
		Cfg:      cfg,
		Registry: registry,
		Sessions: sessions,
		Fetcher:  fetch.NewFetcher(cfg.FetchTimeout, cfg.MaxFetchSize),
		Guard:    throttle.NewGuard(cfg, t.TempDir()),
		Gallery:  gallery.New(t.TempDir()),
	})
	return router, cfg
}

type sessionResponse struct {
	SessionID    string `json:"sessionId"`
	Tool         string `json:"tool"`
	PendingCount int    `json:"pendingCount"`
	Items        []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Status        string `json:"status"`
		OutputName    string `json:"outputName"`
		FailureKind   string `json:"failureKind"`
		FailureReason string `json:"failureReason"`
	} `json:"items"`
}

func createSession(t *testing.T, router *gin.Engine, tool string) sessionResponse {
	t.Helper()
	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"tool": %q}`, tool)
	req, _ := http.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func uploadFiles(t *testing.T, router *gin.Engine, sessionID string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/sessions/"+sessionID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)
	return w
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

func TestHandleCreateSession(t *testing.T) {
	router, _ := setupTestRouter(t)

	resp := createSession(t, router, "json-formatter")
	assert.Equal(t, "json-formatter", resp.Tool)
	assert.Equal(t, 0, resp.PendingCount)

	t.Run("unknown tool", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString(`{"tool": "nope"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleListTools(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.NotEmpty(t, list)
	names := make([]string, 0, len(list))
	for _, tool := range list {
		names = append(names, tool["name"].(string))
	}
	assert.Contains(t, names, "webp-to-jpg")
	assert.Contains(t, names, "png-to-ico")
}

func TestConvertFlow(t *testing.T) {
	router, _ := setupTestRouter(t)
	s := createSession(t, router, "json-formatter")

	w := uploadFiles(t, router, s.SessionID, map[string][]byte{
		"data.json": []byte(`{"a":1}`),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var afterAdd sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &afterAdd))
	require.Len(t, afterAdd.Items, 1)
	assert.Equal(t, "pending", afterAdd.Items[0].Status)
	assert.Equal(t, 1, afterAdd.PendingCount)

	// Convert
	w = httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/sessions/"+s.SessionID+"/convert",
		bytes.NewBufferString(`{"params": {"mode": "minify"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var afterConvert sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &afterConvert))
	require.Len(t, afterConvert.Items, 1)
	assert.Equal(t, "done", afterConvert.Items[0].Status)
	assert.Equal(t, 0, afterConvert.PendingCount)

	// Download the artifact
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET",
		"/api/v1/sessions/"+s.SessionID+"/items/"+afterConvert.Items[0].ID+"/download", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"a":1}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "data.json")

	// Clear the session
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/api/v1/sessions/"+s.SessionID, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/sessions/"+s.SessionID, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectedUploadIsQueuedPreFailed(t *testing.T) {
	router, _ := setupTestRouter(t)
	s := createSession(t, router, "png-to-jpg")

	w := uploadFiles(t, router, s.SessionID, map[string][]byte{
		"anim.gif": []byte("GIF89a..."),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "failed", resp.Items[0].Status)
	assert.Equal(t, "unsupported_type", resp.Items[0].FailureKind)
	assert.Equal(t, 0, resp.PendingCount)
}

func TestImageConversionThroughAPI(t *testing.T) {
	router, _ := setupTestRouter(t)
	s := createSession(t, router, "png-to-jpg")

	w := uploadFiles(t, router, s.SessionID, map[string][]byte{"tiny.png": pngUpload(t)})
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/sessions/"+s.SessionID+"/convert", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "done", resp.Items[0].Status)
	assert.Equal(t, "tiny.jpg", resp.Items[0].OutputName)
}

func TestHandleAddURL(t *testing.T) {
	router, _ := setupTestRouter(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"remote": true}`))
		case "/pic.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("fake"))
		case "/essay.txt":
			w.Header().Set("Content-Type", "text/plain")
			w.Write(bytes.Repeat([]byte("a"), 16*1024))
		}
	}))
	defer origin.Close()

	t.Run("fetched file joins the queue", func(t *testing.T) {
		s := createSession(t, router, "json-formatter")
		w := httptest.NewRecorder()
		body := fmt.Sprintf(`{"url": %q}`, origin.URL+"/doc.json")
		req, _ := http.NewRequest("POST", "/api/v1/sessions/"+s.SessionID+"/url", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "doc.json", resp.Items[0].Name)
		assert.Equal(t, "pending", resp.Items[0].Status)
	})

	t.Run("file over the tool size limit never enters the queue", func(t *testing.T) {
		// qr-generator caps inputs at 4KB, well below the transport
		// fetch limit; the 16KB remote file must be refused outright.
		s := createSession(t, router, "qr-generator")
		w := httptest.NewRecorder()
		body := fmt.Sprintf(`{"url": %q}`, origin.URL+"/essay.txt")
		req, _ := http.NewRequest("POST", "/api/v1/sessions/"+s.SessionID+"/url", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/v1/sessions/"+s.SessionID, nil)
		router.ServeHTTP(w, req)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Items)
	})

	t.Run("type mismatch never enters the queue", func(t *testing.T) {
		s := createSession(t, router, "webp-to-jpg")
		w := httptest.NewRecorder()
		body := fmt.Sprintf(`{"url": %q}`, origin.URL+"/pic.png")
		req, _ := http.NewRequest("POST", "/api/v1/sessions/"+s.SessionID+"/url", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/v1/sessions/"+s.SessionID, nil)
		router.ServeHTTP(w, req)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Items)
	})
}

func TestAuthMiddleware(t *testing.T) {
	router, cfg := setupTestRouter(t)

	t.Run("Auth disabled", func(t *testing.T) {
		cfg.AuthEnable = false
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Auth enabled, no token", func(t *testing.T) {
		cfg.AuthEnable = true
		cfg.AuthKey = "secret"
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Auth enabled, wrong token", func(t *testing.T) {
		cfg.AuthEnable = true
		cfg.AuthKey = "secret"
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
		req.Header.Set("Authorization", "Bearer wrong-key")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Auth enabled, malformed header", func(t *testing.T) {
		cfg.AuthEnable = true
		cfg.AuthKey = "secret"
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
		req.Header.Set("Authorization", "Basic secret")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Auth enabled, correct token", func(t *testing.T) {
		cfg.AuthEnable = true
		cfg.AuthKey = "secret"
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/tools", nil)
		req.Header.Set("Authorization", "Bearer secret")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGalleryEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 40))))
	require.NoError(t, writeFile(dir+"/shot.png", buf.Bytes()))

	cfg := &config.Config{MaxFetchSize: 1 << 20}
	store := blob.NewMemStore()
	registry := tools.NewRegistry(store)
	sessions := session.NewManager(registry, time.Hour)
	sessions.Start()
	t.Cleanup(sessions.Stop)
	router := SetupRouter(Deps{
		Cfg:      cfg,
		Registry: registry,
		Sessions: sessions,
		Fetcher:  fetch.NewFetcher(time.Second, cfg.MaxFetchSize),
		Guard:    throttle.NewGuard(cfg, dir),
		Gallery:  gallery.New(dir),
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/gallery", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var photos []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &photos))
	require.Len(t, photos, 1)
	assert.Equal(t, "shot.png", photos[0]["name"])

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/gallery/shot.png/thumbnail", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	_, format, err := image.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/gallery/missing.png", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
