package app

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/model"
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/internal/storage"
	"bitwise74/capture-api/internal/testutil"
	"bitwise74/capture-api/pkg/middleware"
	"bitwise74/capture-api/pkg/security"
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	deps   *internal.Deps
	dir    string
}

func newTestApp(t *testing.T, enableSeed bool) *testApp {
	t.Helper()

	conn := testutil.NewDB(t)
	dir := filepath.Join(t.TempDir(), "uploads")

	blobs, err := storage.NewLocal(dir)
	require.NoError(t, err)

	d := &internal.Deps{
		DB:            conn,
		Argon:         testutil.NewArgon(),
		Tokens:        security.NewTokenCodec([]byte("test-secret"), time.Hour),
		Blobs:         blobs,
		Analyzer:      service.NewAnalyzer(conn, blobs),
		AllowedTypes:  []string{"image/jpeg", "image/png"},
		MaxUploadSize: 1 << 20,
		EnableSeed:    enableSeed,
	}

	r, err := NewRouter(d, []string{"http://localhost:8080"})
	require.NoError(t, err)

	return &testApp{router: r, deps: d, dir: dir}
}

func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) seed(t *testing.T) {
	t.Helper()

	w := a.do(httptest.NewRequest(http.MethodGet, "/seed", nil), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (a *testApp) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, nil)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}

	t.Fatalf("no %s cookie in response", middleware.SessionCookie)
	return nil
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func analyzeRequest(t *testing.T, img []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if img != nil {
		fw, err := mw.CreateFormFile("image", "capture.jpg")
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func countAnalyses(t *testing.T, a *testApp) int64 {
	t.Helper()

	var n int64
	require.NoError(t, a.deps.DB.Model(model.Analysis{}).Count(&n).Error)
	return n
}

func TestSeed_Idempotent(t *testing.T) {
	a := newTestApp(t, true)

	a.seed(t)
	a.seed(t)

	var n int64
	require.NoError(t, a.deps.DB.Model(model.User{}).Where("email = ?", service.DemoEmail).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSeed_NotMountedWhenDisabled(t *testing.T) {
	a := newTestApp(t, false)

	w := a.do(httptest.NewRequest(http.MethodGet, "/seed", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin_ThenWhoami(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)

	w := a.login(t, "user@example.com", "userpass")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user@example.com", resp.User.Email)
	assert.NotContains(t, w.Body.String(), "argon2id")

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	w = a.do(httptest.NewRequest(http.MethodGet, "/whoami", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var who struct {
		User *struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &who))
	require.NotNil(t, who.User)
	assert.Equal(t, resp.User.ID, who.User.ID)
	assert.Equal(t, "user@example.com", who.User.Email)
}

func TestWhoami_Anonymous(t *testing.T) {
	a := newTestApp(t, true)

	w := a.do(httptest.NewRequest(http.MethodGet, "/whoami", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = a.do(httptest.NewRequest(http.MethodGet, "/whoami", nil), &http.Cookie{Name: "token", Value: "garbage"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestLogin_Failures(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)

	w := a.login(t, "user@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = a.login(t, "nobody@example.com", "userpass")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = a.login(t, "user@example.com", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing credentials"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = a.do(req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_BodyTooLarge(t *testing.T) {
	a := newTestApp(t, true)

	body := `{"email":"` + strings.Repeat("a", 2<<20) + `","password":"x"}`

	// Declared size is rejected up front
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := a.do(req, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Unknown size is cut off while decoding
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w = a.do(req, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"Request body size exceeds limit"}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	w := a.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)
}

func TestPages(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)

	w := a.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = a.do(httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign in")

	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))
	w = a.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Logged in as user@example.com")
}

func TestAnalyze_Unauthorized(t *testing.T) {
	a := newTestApp(t, true)

	w := a.do(analyzeRequest(t, jpegBytes(t), map[string]string{"rating": "50"}), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	assert.Zero(t, countAnalyses(t, a))
}

func TestAnalyze_NoImage(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	w := a.do(analyzeRequest(t, nil, map[string]string{"rating": "50", "comment": "x"}), cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No image provided"}`, w.Body.String())

	// Not even a multipart body
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("rating=50"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = a.do(req, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No image provided"}`, w.Body.String())
}

func TestAnalyze_InvalidInput(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	for _, rating := range []string{"", "abc", "-1", "101"} {
		w := a.do(analyzeRequest(t, jpegBytes(t), map[string]string{"rating": rating}), cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code, rating)
		assert.JSONEq(t, `{"error":"Invalid rating"}`, w.Body.String(), rating)
	}

	w := a.do(analyzeRequest(t, []byte("plain text pretending to be a photo"), map[string]string{"rating": "10"}), cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Unsupported image type"}`, w.Body.String())

	assert.Zero(t, countAnalyses(t, a))
}

func TestAnalyze_Success(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	img := jpegBytes(t)
	w := a.do(analyzeRequest(t, img, map[string]string{"rating": "75", "comment": "nice"}), cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success    bool           `json:"success"`
		AIResponse string         `json:"ai_response"`
		Analysis   model.Analysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Contains(t, resp.AIResponse, "75")
	assert.Contains(t, resp.AIResponse, "nice")
	assert.Equal(t, 75, resp.Analysis.Rating)
	assert.Equal(t, "nice", resp.Analysis.Comment)
	assert.Equal(t, int64(1), countAnalyses(t, a))

	// The blob is on disk under the recorded path
	key := strings.TrimPrefix(resp.Analysis.ImagePath, service.UploadPrefix)
	assert.Regexp(t, `^\d+-[a-z0-9]{7}\.jpg$`, key)
	stored, err := os.ReadFile(filepath.Join(a.dir, key))
	require.NoError(t, err)
	assert.Equal(t, img, stored)

	// Served back to its owner only
	w = a.do(httptest.NewRequest(http.MethodGet, resp.Analysis.ImagePath, nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, img, w.Body.Bytes())

	w = a.do(httptest.NewRequest(http.MethodGet, resp.Analysis.ImagePath, nil), nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = a.do(httptest.NewRequest(http.MethodGet, "/analyses", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Analyses []model.Analysis `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Analyses, 1)
	assert.Equal(t, resp.Analysis.ID, list.Analyses[0].ID)
}

func TestAnalyze_EmptyComment(t *testing.T) {
	a := newTestApp(t, true)
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	w := a.do(analyzeRequest(t, jpegBytes(t), map[string]string{"rating": "0"}), cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `rating 0`)
}

func TestAnalyze_TooLarge(t *testing.T) {
	a := newTestApp(t, true)
	a.deps.MaxUploadSize = 16
	a.seed(t)
	cookie := sessionCookie(t, a.login(t, "user@example.com", "userpass"))

	w := a.do(analyzeRequest(t, jpegBytes(t), map[string]string{"rating": "5"}), cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, countAnalyses(t, a))
}

func TestHeartbeat(t *testing.T) {
	a := newTestApp(t, true)

	w := a.do(httptest.NewRequest(http.MethodHead, "/heartbeat", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
