// Package form validates patient input and builds the record handed to the directory.
package form

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-directory/internal/model"
)

// Field names a form input.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldWebsite     Field = "website"
	FieldAvatar      Field = "avatar"
)

// Errors maps a field to its message. An empty map means the input is valid.
type Errors map[Field]string

const (
	MsgNameRequired = "Name is required"
	MsgNameTooShort = "Name must be at least 2 characters"
	MsgWebsite      = "Please enter a valid URL (starting with http:// or https://)"
	MsgAvatarSize   = "Image size must be less than 5MB"
	MsgAvatarType   = "Please select a valid image file (JPEG, PNG, GIF, WebP)"
)

// CreatedAtLayout matches the timestamps the remote API produces.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

const DefaultMaxAvatarBytes int64 = 5 * 1024 * 1024

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var websitePattern = regexp.MustCompile(`^https?://.+`)

// Values are the text inputs of the form.
type Values struct {
	Name        string
	Description string
	Website     string
	Avatar      string
}

// File is an avatar image chosen by the user.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// PreviewStore keeps chosen files and returns a local reference to them.
type PreviewStore interface {
	Put(contentType string, data []byte) string
}

type Options struct {
	MaxAvatarBytes int64
	AllowedTypes   []string
	IDs            IDGenerator
	Now            func() time.Time
}

// Builder validates input and produces patient records.
type Builder struct {
	validate       *validator.Validate
	previews       PreviewStore
	ids            IDGenerator
	now            func() time.Time
	maxAvatarBytes int64
	allowedTypes   []string
}

type textInput struct {
	Name    string `validate:"required,min=2"`
	Website string `validate:"omitempty,httpurl"`
}

func NewBuilder(previews PreviewStore, opts Options) *Builder {
	v := validator.New()
	if err := v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return websitePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = NewMillisID(opts.Now)
	}
	if opts.MaxAvatarBytes <= 0 {
		opts.MaxAvatarBytes = DefaultMaxAvatarBytes
	}
	if len(opts.AllowedTypes) == 0 {
		opts.AllowedTypes = DefaultAllowedTypes
	}

	return &Builder{
		validate:       v,
		previews:       previews,
		ids:            opts.IDs,
		now:            opts.Now,
		maxAvatarBytes: opts.MaxAvatarBytes,
		allowedTypes:   opts.AllowedTypes,
	}
}

// Validate checks values and the optional chosen file.
func (b *Builder) Validate(values Values, file *File) Errors {
	errs := Errors{}

	in := textInput{
		Name:    strings.TrimSpace(values.Name),
		Website: strings.TrimSpace(values.Website),
	}
	if err := b.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			panic(err)
		}
		for _, e := range verrs {
			switch e.Field() {
			case "Name":
				if e.Tag() == "required" {
					errs[FieldName] = MsgNameRequired
				} else {
					errs[FieldName] = MsgNameTooShort
				}
			case "Website":
				errs[FieldWebsite] = MsgWebsite
			}
		}
	}

	if file != nil {
		if err := b.validate.Var(file.Size, fmt.Sprintf("lte=%d", b.maxAvatarBytes)); err != nil {
			errs[FieldAvatar] = MsgAvatarSize
		}
		// type errors take precedence over size errors
		if err := b.validate.Var(ContentType(file), "oneof="+strings.Join(b.allowedTypes, " ")); err != nil {
			errs[FieldAvatar] = MsgAvatarType
		}
	}

	return errs
}

// ContentType returns the declared type of file, sniffing the bytes when the
// client did not send a specific one.
func ContentType(file *File) string {
	ct := strings.TrimSpace(file.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(file.Data).String()
	}
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// New starts a form. existing is nil when adding a patient.
func (b *Builder) New(existing *model.Patient) *Form {
	f := &Form{builder: b, errors: Errors{}}
	if existing != nil {
		p := *existing
		f.existing = &p
		f.values = Values{
			Name:        p.Name,
			Description: p.Description,
			Website:     p.Website,
			Avatar:      p.Avatar,
		}
	}
	return f
}

// Form holds the in-progress input of one add or edit dialog.
type Form struct {
	builder  *Builder
	existing *model.Patient
	values   Values
	file     *File
	errors   Errors
}

// Set changes a text input and clears that field's error.
func (f *Form) Set(field Field, value string) {
	switch field {
	case FieldName:
		f.values.Name = value
	case FieldDescription:
		f.values.Description = value
	case FieldWebsite:
		f.values.Website = value
	case FieldAvatar:
		f.values.Avatar = value
	default:
		return
	}
	delete(f.errors, field)
}

// Choose selects an avatar file and clears the avatar error.
func (f *Form) Choose(file *File) {
	if file == nil {
		return
	}
	f.file = file
	delete(f.errors, FieldAvatar)
}

func (f *Form) Values() Values {
	return f.values
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() Errors {
	out := make(Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Submit validates the form. While any error is present no record is produced.
func (f *Form) Submit() (*model.Patient, Errors) {
	f.errors = f.builder.Validate(f.values, f.file)
	if len(f.errors) > 0 {
		return nil, f.Errors()
	}

	p := &model.Patient{
		Name:        f.values.Name,
		Description: f.values.Description,
		Website:     f.values.Website,
		Avatar:      f.values.Avatar,
	}
	if f.existing != nil {
		p.ID = f.existing.ID
		p.CreatedAt = f.existing.CreatedAt
	}
	if p.ID == "" {
		p.ID = f.builder.ids.Next()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = f.builder.now().UTC().Format(CreatedAtLayout)
	}
	if f.file != nil && f.builder.previews != nil {
		p.Avatar = f.builder.previews.Put(ContentType(f.file), f.file.Data)
	}
	return p, nil
}
