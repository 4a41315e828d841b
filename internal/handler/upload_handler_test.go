package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahraAghaee77/School-Management-API/pkg/storage"
)

func newUploadFixture(t *testing.T) *UploadHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewUploadHandler(store, 1<<20)
}

func TestUploadDownloadServesStoredFile(t *testing.T) {
	h := newUploadFixture(t)
	_, err := h.store.Save("answer.pdf", []byte("content"))
	require.NoError(t, err)

	c, rec := testContext(t)
	c.Params = gin.Params{{Key: "name", Value: "answer.pdf"}}
	h.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content", rec.Body.String())
}

func TestUploadDownloadRejectsTraversalNames(t *testing.T) {
	h := newUploadFixture(t)

	for _, name := range []string{"..", ".", "/"} {
		c, rec := testContext(t)
		c.Params = gin.Params{{Key: "name", Value: name}}
		h.Download(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "name %q", name)
	}
}

func TestUploadDownloadUnknownFileIsNotFound(t *testing.T) {
	h := newUploadFixture(t)

	c, rec := testContext(t)
	c.Params = gin.Params{{Key: "name", Value: "missing.pdf"}}
	h.Download(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
