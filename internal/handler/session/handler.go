package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/handler"
	"github.com/jwalitptl/patient-directory/internal/model"
	patientsvc "github.com/jwalitptl/patient-directory/internal/service/patient"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// Directory is the session side of the patient directory: page controls,
// dialogs and the rendered view.
type Directory interface {
	View(avatars patientsvc.AvatarResolver) model.DirectoryView
	SetFilter(text string)
	ClearFilter()
	SetSortBy(key model.SortKey) error
	OpenAdd()
	CancelAdd()
	SubmitAdd(p model.Patient)
	OpenEdit(id string) (model.Patient, error)
	Selected() (model.Patient, bool)
	CancelEdit()
	SubmitEdit(p model.Patient) bool
	RequestDelete(id string) (model.Patient, error)
	ConfirmDelete() (model.Patient, bool)
	CancelDelete()
	ToggleExpand(id string) string
	DismissToast()
}

type Handler struct {
	dir     Directory
	forms   *handler.Forms
	avatars patientsvc.AvatarResolver
	events  *handler.Events
}

func NewHandler(dir Directory, forms *handler.Forms, avatars patientsvc.AvatarResolver, events *handler.Events) *Handler {
	return &Handler{
		dir:     dir,
		forms:   forms,
		avatars: avatars,
		events:  events,
	}
}

type filterRequest struct {
	Filter string `json:"filter"`
}

type sortRequest struct {
	SortBy model.SortKey `json:"sortBy" binding:"required"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/directory", h.GetDirectory)

	session := r.Group("/session")
	{
		session.PUT("/filter", h.SetFilter)
		session.DELETE("/filter", h.ClearFilter)
		session.PUT("/sort", h.SetSort)

		session.POST("/add/open", h.OpenAdd)
		session.POST("/add/cancel", h.CancelAdd)
		session.POST("/add/submit", h.SubmitAdd)

		session.POST("/edit/:id/open", h.OpenEdit)
		session.POST("/edit/cancel", h.CancelEdit)
		session.POST("/edit/submit", h.SubmitEdit)

		session.POST("/delete/:id/request", h.RequestDelete)
		session.POST("/delete/confirm", h.ConfirmDelete)
		session.POST("/delete/cancel", h.CancelDelete)

		session.POST("/expand/:id", h.ToggleExpand)
		session.DELETE("/toast", h.DismissToast)
	}
}

func (h *Handler) render(c *gin.Context, status int) {
	c.JSON(status, handler.NewSuccessResponse(h.dir.View(h.avatars)))
}

func (h *Handler) GetDirectory(c *gin.Context) {
	h.render(c, http.StatusOK)
}

func (h *Handler) SetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}
	h.dir.SetFilter(req.Filter)
	h.render(c, http.StatusOK)
}

func (h *Handler) ClearFilter(c *gin.Context) {
	h.dir.ClearFilter()
	h.render(c, http.StatusOK)
}

func (h *Handler) SetSort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.dir.SetSortBy(req.SortBy); err != nil {
		c.Error(err)
		return
	}
	h.render(c, http.StatusOK)
}

func (h *Handler) OpenAdd(c *gin.Context) {
	h.dir.OpenAdd()
	h.render(c, http.StatusOK)
}

func (h *Handler) CancelAdd(c *gin.Context) {
	h.dir.CancelAdd()
	h.render(c, http.StatusOK)
}

// SubmitAdd validates the add dialog. Field errors leave the dialog open.
func (h *Handler) SubmitAdd(c *gin.Context) {
	p, errs, err := h.forms.Submit(c, nil)
	if err != nil {
		c.Error(err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, handler.NewValidationErrorResponse(handler.FieldErrors(errs)))
		return
	}

	h.dir.SubmitAdd(*p)
	h.events.Created(c.Request.Context(), *p)
	h.render(c, http.StatusCreated)
}

func (h *Handler) OpenEdit(c *gin.Context) {
	if _, err := h.dir.OpenEdit(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	h.render(c, http.StatusOK)
}

func (h *Handler) CancelEdit(c *gin.Context) {
	h.dir.CancelEdit()
	h.render(c, http.StatusOK)
}

// SubmitEdit validates the edit dialog against the selected patient.
func (h *Handler) SubmitEdit(c *gin.Context) {
	selected, ok := h.dir.Selected()
	if !ok {
		c.Error(apperrors.BadRequest("no patient is being edited", nil))
		return
	}

	p, errs, err := h.forms.Submit(c, &selected)
	if err != nil {
		c.Error(err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, handler.NewValidationErrorResponse(handler.FieldErrors(errs)))
		return
	}

	if h.dir.SubmitEdit(*p) {
		h.events.Updated(c.Request.Context(), *p)
	}
	h.render(c, http.StatusOK)
}

func (h *Handler) RequestDelete(c *gin.Context) {
	if _, err := h.dir.RequestDelete(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	h.render(c, http.StatusOK)
}

func (h *Handler) ConfirmDelete(c *gin.Context) {
	if p, ok := h.dir.ConfirmDelete(); ok {
		h.events.Deleted(c.Request.Context(), p.ID)
	}
	h.render(c, http.StatusOK)
}

func (h *Handler) CancelDelete(c *gin.Context) {
	h.dir.CancelDelete()
	h.render(c, http.StatusOK)
}

func (h *Handler) ToggleExpand(c *gin.Context) {
	h.dir.ToggleExpand(c.Param("id"))
	h.render(c, http.StatusOK)
}

func (h *Handler) DismissToast(c *gin.Context) {
	h.dir.DismissToast()
	h.render(c, http.StatusOK)
}
