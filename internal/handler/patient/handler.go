package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/handler"
	"github.com/jwalitptl/patient-directory/internal/model"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// Directory is the part of the patient directory the REST endpoints use.
type Directory interface {
	Snapshot() model.Session
	Get(id string) (model.Patient, bool)
	Query(filter string, sortBy model.SortKey) ([]model.Patient, error)
	Add(p model.Patient)
	Update(p model.Patient) bool
	Remove(id string) bool
	MarkAvatarFailed(id string) error
}

// AvatarResolver picks the image a client should display.
type AvatarResolver interface {
	Resolve(value string, failed bool) string
}

type Handler struct {
	dir     Directory
	forms   *handler.Forms
	avatars AvatarResolver
	events  *handler.Events
}

func NewHandler(dir Directory, forms *handler.Forms, avatars AvatarResolver, events *handler.Events) *Handler {
	return &Handler{
		dir:     dir,
		forms:   forms,
		avatars: avatars,
		events:  events,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
		patients.POST("/:id/avatar-failed", h.AvatarFailed)
	}
}

// ListPatients returns the derived list. The filter and sort query
// parameters override the session values without changing them.
func (h *Handler) ListPatients(c *gin.Context) {
	session := h.dir.Snapshot()
	filter, sortBy := session.Filter, session.SortBy
	if v, ok := c.GetQuery("filter"); ok {
		filter = v
	}
	if v, ok := c.GetQuery("sort"); ok {
		sortBy = model.SortKey(v)
	}

	patients, err := h.dir.Query(filter, sortBy)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, ok := h.dir.Get(c.Param("id"))
	if !ok {
		c.Error(apperrors.NotFound("patient", nil))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) CreatePatient(c *gin.Context) {
	p, errs, err := h.forms.Submit(c, nil)
	if err != nil {
		c.Error(err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, handler.NewValidationErrorResponse(handler.FieldErrors(errs)))
		return
	}

	h.dir.Add(*p)
	h.events.Created(c.Request.Context(), *p)

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	existing, ok := h.dir.Get(c.Param("id"))
	if !ok {
		c.Error(apperrors.NotFound("patient", nil))
		return
	}

	p, errs, err := h.forms.Submit(c, &existing)
	if err != nil {
		c.Error(err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, handler.NewValidationErrorResponse(handler.FieldErrors(errs)))
		return
	}

	if !h.dir.Update(*p) {
		// removed while the body was being read
		c.Error(apperrors.NotFound("patient", nil))
		return
	}
	h.events.Updated(c.Request.Context(), *p)

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

// DeletePatient is idempotent: deleting an unknown id succeeds.
func (h *Handler) DeletePatient(c *gin.Context) {
	id := c.Param("id")
	if h.dir.Remove(id) {
		h.events.Deleted(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"id": id}))
}

// AvatarFailed records that the client failed to load the avatar and returns
// the image to show instead.
func (h *Handler) AvatarFailed(c *gin.Context) {
	id := c.Param("id")
	if err := h.dir.MarkAvatarFailed(id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"id":        id,
		"avatarSrc": h.avatars.Resolve("", true),
	}))
}
