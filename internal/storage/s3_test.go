package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3_ServeRedirectsToPublicURL(t *testing.T) {
	s := &S3{PublicURL: "https://cdn.example.com"}

	w := httptest.NewRecorder()
	s.Serve(w, httptest.NewRequest(http.MethodGet, "/uploads/a.jpg", nil), "a.jpg")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn.example.com/a.jpg", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	s.Serve(w, httptest.NewRequest(http.MethodGet, "/uploads/x", nil), "../x")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
