package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/patient-directory/internal/form"
	"github.com/jwalitptl/patient-directory/internal/model"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// AvatarFileField is the multipart part that carries a chosen avatar image.
const AvatarFileField = "avatarFile"

// ErrUploadTooLarge means the body hit the request size cap while an
// avatar upload was being read.
var ErrUploadTooLarge = errors.New("upload exceeds the request size limit")

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// PatientInput is the decoded body of an add or edit submission.
type PatientInput struct {
	Values form.Values
	File   *form.File
}

// BindPatientInput decodes a JSON, urlencoded or multipart body. At most
// maxFile bytes of an uploaded file are read; the declared size is kept so
// that validation can reject oversized files.
func BindPatientInput(c *gin.Context, maxFile int64) (*PatientInput, error) {
	var req model.PatientRequest
	if err := c.ShouldBind(&req); err != nil {
		if tooLarge(err) {
			return nil, ErrUploadTooLarge
		}
		return nil, apperrors.BadRequest("invalid request body", err)
	}

	in := &PatientInput{Values: form.Values{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Avatar:      req.Avatar,
	}}

	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return in, nil
	}

	header, err := c.FormFile(AvatarFileField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if tooLarge(err) {
		return nil, ErrUploadTooLarge
	}
	if err != nil {
		return nil, apperrors.BadRequest("invalid avatar upload", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("open avatar upload: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFile+1))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("read avatar upload: %w", err))
	}

	in.File = &form.File{
		Filename:    header.Filename,
		ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Size:        header.Size,
		Data:        data,
	}
	return in, nil
}

// FieldErrors converts form errors to their JSON shape.
func FieldErrors(errs form.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for field, msg := range errs {
		out[string(field)] = msg
	}
	return out
}

// Forms turns request bodies into validated patient records.
type Forms struct {
	builder *form.Builder
	maxFile int64
	uploads prometheus.Counter
}

// NewForms wraps builder. uploads counts stored avatar files and may be nil.
func NewForms(builder *form.Builder, maxFile int64, uploads prometheus.Counter) *Forms {
	if maxFile <= 0 {
		maxFile = form.DefaultMaxAvatarBytes
	}
	return &Forms{builder: builder, maxFile: maxFile, uploads: uploads}
}

// Submit binds the request body onto a new form, or onto one prefilled from
// existing, and validates it. A non-nil error means the body could not be
// read; field errors are returned separately. A body cut off by the size cap
// is reported as an oversized avatar.
func (f *Forms) Submit(c *gin.Context, existing *model.Patient) (*model.Patient, form.Errors, error) {
	in, err := BindPatientInput(c, f.maxFile)
	if errors.Is(err, ErrUploadTooLarge) {
		return nil, form.Errors{form.FieldAvatar: form.MsgAvatarSize}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	fm := f.builder.New(existing)
	fm.Set(form.FieldName, in.Values.Name)
	fm.Set(form.FieldDescription, in.Values.Description)
	fm.Set(form.FieldWebsite, in.Values.Website)
	// an edit without a new avatar keeps the stored one
	if existing == nil || in.Values.Avatar != "" {
		fm.Set(form.FieldAvatar, in.Values.Avatar)
	}
	fm.Choose(in.File)

	p, errs := fm.Submit()
	if len(errs) > 0 {
		return nil, errs, nil
	}
	if in.File != nil && f.uploads != nil {
		f.uploads.Inc()
	}
	return p, nil, nil
}
