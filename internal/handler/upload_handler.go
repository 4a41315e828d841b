package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/zahraAghaee77/School-Management-API/pkg/errors"
	"github.com/zahraAghaee77/School-Management-API/pkg/response"
	"github.com/zahraAghaee77/School-Management-API/pkg/storage"
)

// UploadHandler stores assignment and solution attachments. Clients upload a
// file first, then reference the returned path in the create/update payload.
type UploadHandler struct {
	store   *storage.LocalStorage
	maxSize int64
}

// NewUploadHandler constructs an UploadHandler instance.
func NewUploadHandler(store *storage.LocalStorage, maxSize int64) *UploadHandler {
	return &UploadHandler{store: store, maxSize: maxSize}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Accepts a single PDF or ZIP file and returns its storage path
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Attachment file (.pdf or .zip)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a file form field is required"))
		return
	}
	if fileHeader.Size > h.maxSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size"))
		return
	}
	if err := storage.ValidateExtension(fileHeader.Filename); err != nil {
		response.Error(c, err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	path, err := h.store.SaveStream(name, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	response.Created(c, gin.H{"path": path, "filename": fileHeader.Filename})
}

// Download godoc
// @Summary Download a stored attachment
// @Tags Uploads
// @Produce octet-stream
// @Param name path string true "Stored attachment name"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /uploads/{name} [get]
func (h *UploadHandler) Download(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	if name == "." || name == ".." || name == "/" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid attachment name"))
		return
	}
	file, err := h.store.Open(name)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "attachment not found"))
		return
	}
	file.Close() //nolint:errcheck
	c.FileAttachment(h.store.Path(name), name)
}
