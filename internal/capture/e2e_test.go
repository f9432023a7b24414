package capture_test

import (
	"bitwise74/capture-api/app"
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/capture"
	"bitwise74/capture-api/internal/model"
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/internal/storage"
	"bitwise74/capture-api/internal/testutil"
	"bitwise74/capture-api/pkg/security"
	"context"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureAgainstServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	conn := testutil.NewDB(t)
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	d := &internal.Deps{
		DB:            conn,
		Argon:         testutil.NewArgon(),
		Tokens:        security.NewTokenCodec([]byte("e2e-secret"), time.Hour),
		Blobs:         blobs,
		Analyzer:      service.NewAnalyzer(conn, blobs),
		AllowedTypes:  []string{"image/jpeg"},
		MaxUploadSize: 1 << 20,
	}

	_, err = service.SeedDemoUser(context.Background(), conn, d.Argon)
	require.NoError(t, err)

	r, err := app.NewRouter(d, []string{"http://localhost"})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	defer srv.Close()

	imgPath := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 32, 24))))
	require.NoError(t, f.Close())

	ctx := context.Background()

	// Without a session the server refuses and the workflow doesn't advance
	w := capture.New(capture.NewFileCamera(imgPath), &capture.HTTPSubmitter{BaseURL: srv.URL, Client: srv.Client()})
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Capture())

	_, err = w.Submit(ctx)
	var se *capture.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.Status)
	assert.Equal(t, capture.Captured, w.State())

	tok, err := capture.Login(ctx, srv.Client(), srv.URL, service.DemoEmail, service.DemoPassword)
	require.NoError(t, err)

	w = capture.New(capture.NewFileCamera(imgPath), &capture.HTTPSubmitter{BaseURL: srv.URL, Token: tok, Client: srv.Client()})
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Capture())
	require.NoError(t, w.Annotate(75, "nice"))

	text, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "75")
	assert.Contains(t, text, "nice")
	assert.Equal(t, capture.Result, w.State())

	var n int64
	require.NoError(t, conn.Model(model.Analysis{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	require.NoError(t, w.Retake(ctx))
	assert.Equal(t, capture.LivePreview, w.State())
	require.NoError(t, w.Close())
}
