package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, blobs, _ := newTestService(t)
	handler := NewHandler(svc, blobs, 1<<20, MaxImagesPerProject)

	router := gin.New()
	handler.RegisterAdmin(router.Group("/admin/projects"))
	return router, svc
}

func addFilePart(t *testing.T, w *multipart.Writer, name, contentType string, body []byte) {
	t.Helper()
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
}

func TestUploadImagesReportsEveryRejectedFile(t *testing.T) {
	router, svc := newAdminRouter(t)

	p, err := svc.Create(context.Background(), CreateInput{
		Title: "Gallery", Category: "residential", Date: "2026-01-01",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	addFilePart(t, w, "bad-one.pdf", "application/pdf", []byte("%PDF"))
	addFilePart(t, w, "bad-two.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, w.Close())

	req, _ := http.NewRequest("POST", "/admin/projects/"+p.ID+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "validation_error", envelope.Code)
	assert.Contains(t, envelope.Error, "bad-one.pdf")
	assert.Contains(t, envelope.Error, "bad-two.pdf", "every rejected file must be reported, not just the first")
}

func TestUploadImagesAcceptsValidBatch(t *testing.T) {
	router, svc := newAdminRouter(t)

	p, err := svc.Create(context.Background(), CreateInput{
		Title: "Gallery Two", Category: "residential", Date: "2026-01-01",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	addFilePart(t, w, "one.jpg", "image/jpeg", []byte("fake-jpeg-bytes"))
	addFilePart(t, w, "two.png", "image/png", []byte("fake-png-bytes"))
	require.NoError(t, w.Close())

	req, _ := http.NewRequest("POST", "/admin/projects/"+p.ID+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 2)
}
