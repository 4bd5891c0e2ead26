package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-directory/internal/avatar"
	"github.com/jwalitptl/patient-directory/internal/form"
	"github.com/jwalitptl/patient-directory/internal/handler"
	"github.com/jwalitptl/patient-directory/internal/middleware"
	"github.com/jwalitptl/patient-directory/internal/model"
	patientsvc "github.com/jwalitptl/patient-directory/internal/service/patient"
)

const placeholder = "/placeholder.svg"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type staticSource []model.Patient

func (s staticSource) FetchPatients(context.Context) ([]model.Patient, error) {
	out := make([]model.Patient, len(s))
	copy(out, s)
	return out, nil
}

type published struct {
	eventType string
	payload   interface{}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *capturePublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType, payload})
	return nil
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type fixture struct {
	router *gin.Engine
	dir    *patientsvc.Directory
	store  *avatar.Store
	pub    *capturePublisher
}

func setup(t *testing.T, mw ...gin.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := patientsvc.NewDirectory(staticSource{
		{ID: "1", Name: "Jo", Description: "checkup", Avatar: "https://img.example/jo.png", CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "2", Name: "Ann", Description: "diabetic", CreatedAt: "2024-03-01T08:00:00.000Z"},
	})
	require.NoError(t, dir.Load(context.Background()))

	now := func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	store := avatar.NewStore(0)
	forms := handler.NewForms(form.NewBuilder(store, form.Options{Now: now}), 0, nil)
	pub := &capturePublisher{}
	h := NewHandler(dir, forms, avatar.NewPolicy(placeholder, nil), handler.NewEvents(pub, nil, zerolog.Nop()))

	r := gin.New()
	r.Use(middleware.ErrorHandler(zerolog.Nop()))
	r.Use(mw...)
	h.RegisterRoutes(r.Group("/api/v1"))

	return &fixture{router: r, dir: dir, store: store, pub: pub}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileType string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="avatarFile"; filename="avatar"`)
		if fileType != "" {
			h.Set("Content-Type", fileType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodePatient(t *testing.T, raw json.RawMessage) model.Patient {
	t.Helper()
	var p model.Patient
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestListPatients(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var patients []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &patients))
	require.Len(t, patients, 2)
	assert.Equal(t, "2", patients[0].ID, "newest first")
	assert.Equal(t, "1", patients[1].ID)
}

func TestListPatients_QueryOverridesSession(t *testing.T) {
	f := setup(t)
	f.dir.SetFilter("checkup")

	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients?filter=DIAB", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var patients []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &patients))
	require.Len(t, patients, 1)
	assert.Equal(t, "Ann", patients[0].Name)
	assert.Equal(t, "checkup", f.dir.Snapshot().Filter, "session filter untouched")
}

func TestListPatients_InvalidSort(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients?sort=age", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestGetPatient(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jo", decodePatient(t, env.Data).Name)

	w, env = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "patient not found", env.Message)
}

func TestCreatePatient_JSON(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, jsonRequest(http.MethodPost, "/api/v1/patients",
		`{"name":"Zoe","description":"new","website":"https://zoe.example"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	p := decodePatient(t, env.Data)
	assert.Equal(t, "1714521600000", p.ID)
	assert.Equal(t, "2024-05-01T00:00:00.000Z", p.CreatedAt)
	assert.Equal(t, "Zoe", p.Name)

	stored, ok := f.dir.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, p, stored)
	assert.Equal(t, patientsvc.MsgAdded, f.dir.Toast().Message)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, string(model.PatientCreated), f.pub.events[0].eventType)
}

func TestCreatePatient_ValidationErrors(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, jsonRequest(http.MethodPost, "/api/v1/patients", `{"name":"Z","website":"ftp://x"}`))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, map[string]string{
		"name":    form.MsgNameTooShort,
		"website": form.MsgWebsite,
	}, env.Errors)
	assert.Len(t, f.dir.Patients(), 2)
	assert.Empty(t, f.pub.events)
}

func TestCreatePatient_MalformedJSON(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, jsonRequest(http.MethodPost, "/api/v1/patients", `{"name":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", env.Message)
}

func TestCreatePatient_MultipartWithAvatar(t *testing.T) {
	f := setup(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/patients",
		map[string]string{"name": "Zoe"}, "", pngHeader)
	w, env := f.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	p := decodePatient(t, env.Data)
	require.True(t, strings.HasPrefix(p.Avatar, avatar.PathPrefix), p.Avatar)

	blob, ok := f.store.Get(strings.TrimPrefix(p.Avatar, avatar.PathPrefix))
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Equal(t, pngHeader, blob.Data)
}

func TestCreatePatient_MultipartRejectsNonImage(t *testing.T) {
	f := setup(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/patients",
		map[string]string{"name": "Zoe"}, "text/plain", []byte("hello"))
	w, env := f.do(t, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, form.MsgAvatarType, env.Errors["avatar"])
	assert.Equal(t, 0, f.store.Len())
}

func TestCreatePatient_UploadOverBodyCap(t *testing.T) {
	limit := middleware.DefaultSizeLimitConfig()
	f := setup(t, middleware.SizeLimit(limit))

	file := append(append([]byte{}, pngHeader...), make([]byte, 7<<20)...)
	req := multipartRequest(t, http.MethodPost, "/api/v1/patients",
		map[string]string{"name": "Zoe"}, "image/png", file)
	require.Greater(t, req.ContentLength, limit.MaxBodySize)

	w, env := f.do(t, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, map[string]string{"avatar": form.MsgAvatarSize}, env.Errors)
	assert.Equal(t, 0, f.store.Len())
	assert.Len(t, f.dir.Patients(), 2)
}

func TestUpdatePatient_KeepsIdentityAndAvatar(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, jsonRequest(http.MethodPut, "/api/v1/patients/1", `{"name":"Jo Updated"}`))
	require.Equal(t, http.StatusOK, w.Code)

	p := decodePatient(t, env.Data)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", p.CreatedAt)
	assert.Equal(t, "https://img.example/jo.png", p.Avatar)
	assert.Equal(t, "Jo Updated", p.Name)
	assert.Equal(t, "", p.Description)

	assert.Equal(t, patientsvc.MsgUpdated, f.dir.Toast().Message)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, string(model.PatientUpdated), f.pub.events[0].eventType)
}

func TestUpdatePatient_Unknown(t *testing.T) {
	f := setup(t)

	w, _ := f.do(t, jsonRequest(http.MethodPut, "/api/v1/patients/99", `{"name":"Nobody"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.pub.events)
}

func TestDeletePatient_Idempotent(t *testing.T) {
	f := setup(t)

	w, _ := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/patients/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := f.dir.Get("1")
	assert.False(t, ok)
	assert.Equal(t, patientsvc.MsgDeleted, f.dir.Toast().Message)

	w, _ = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/patients/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, string(model.PatientDeleted), f.pub.events[0].eventType)
	assert.Equal(t, map[string]string{"id": "1"}, f.pub.events[0].payload)
}

func TestAvatarFailed(t *testing.T) {
	f := setup(t)

	w, env := f.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/patients/1/avatar-failed", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, placeholder, data["avatarSrc"])
	assert.True(t, f.dir.Snapshot().FailedAvatars["1"])

	w, _ = f.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/patients/99/avatar-failed", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPatients_UsesSessionWithoutQuery(t *testing.T) {
	f := setup(t)
	f.dir.SetFilter("checkup")

	w, env := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var patients []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &patients))
	require.Len(t, patients, 1)
	assert.Equal(t, "Jo", patients[0].Name)
}
