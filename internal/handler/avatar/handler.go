package avatar

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/assets"
	"github.com/jwalitptl/patient-directory/internal/avatar"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// BlobSource returns stored avatar previews by id.
type BlobSource interface {
	Get(id string) (avatar.Blob, bool)
}

type Handler struct {
	blobs BlobSource
}

func NewHandler(blobs BlobSource) *Handler {
	return &Handler{blobs: blobs}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/avatars/:id", h.GetAvatar)
	r.GET("/assets/avatar-placeholder.svg", h.Placeholder)
}

func (h *Handler) GetAvatar(c *gin.Context) {
	blob, ok := h.blobs.Get(c.Param("id"))
	if !ok {
		c.Error(apperrors.NotFound("avatar", nil))
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}

func (h *Handler) Placeholder(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, assets.AvatarPlaceholderType, assets.AvatarPlaceholder)
}
