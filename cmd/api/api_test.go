package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-directory/internal/avatar"
	"github.com/jwalitptl/patient-directory/internal/config"
	"github.com/jwalitptl/patient-directory/internal/model"
	patientService "github.com/jwalitptl/patient-directory/internal/service/patient"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
	"github.com/jwalitptl/patient-directory/pkg/messaging/redis"
)

const upstreamPatients = `[
	{"id":"1","name":"Jo","description":"checkup","website":"https://jo.example","avatar":"https://cdn.as.com/jo.png","createdAt":"2024-01-01T00:00:00.000Z"},
	{"id":2,"name":"Ann","description":"diabetic","website":"","avatar":null,"createdAt":"2024-03-01T08:00:00.000Z"}
]`

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (r APIResponse) IsSuccess() bool {
	return r.Status == "success"
}

type testServer struct {
	*httptest.Server
	app *app
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Remote: config.RemoteConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Avatar: config.AvatarConfig{
			PlaceholderURL: avatar.DefaultPlaceholderURL,
			BrokenHosts:    avatar.DefaultBrokenHosts,
			MaxUploadBytes: 5 << 20,
		},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}},
		Monitoring: config.MonitoringConfig{PrometheusEnabled: true, Namespace: "e2e"},
	}
}

func startServer(t *testing.T, upstream http.HandlerFunc) *testServer {
	t.Helper()
	remote := httptest.NewServer(upstream)
	t.Cleanup(remote.Close)

	return startServerWithBase(t, remote.URL)
}

func startServerWithBase(t *testing.T, baseURL string) *testServer {
	t.Helper()
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(baseURL), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	_ = a.dir.Load(ctx)

	srv := httptest.NewServer(a.router.Engine())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: a}
}

func (s *testServer) makeRequest(t *testing.T, method, path string, body interface{}) (int, APIResponse) {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.URL+"/api/v1"+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decodeView(t *testing.T, r APIResponse) model.DirectoryView {
	t.Helper()
	var v model.DirectoryView
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func serveUpstream(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestAPI_DirectoryFlow(t *testing.T) {
	s := startServer(t, serveUpstream(http.StatusOK, upstreamPatients))

	resp, err := s.Client().Get(s.URL + "/api/v1/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, r := s.makeRequest(t, http.MethodGet, "/directory", nil)
	require.Equal(t, http.StatusOK, code)
	v := decodeView(t, r)
	require.Len(t, v.Cards, 2)
	assert.Equal(t, "Ann", v.Cards[0].Name)
	assert.Equal(t, avatar.DefaultPlaceholderURL, v.Cards[0].AvatarSrc, "missing avatar")
	assert.Equal(t, avatar.DefaultPlaceholderURL, v.Cards[1].AvatarSrc, "broken host")
	assert.Equal(t, "Jan 01, 2024", v.Cards[1].Created)

	code, r = s.makeRequest(t, http.MethodPost, "/patients", map[string]string{"name": "Zoe", "website": "https://zoe.example"})
	require.Equal(t, http.StatusCreated, code)
	var zoe model.Patient
	require.NoError(t, json.Unmarshal(r.Data, &zoe))
	require.NotEmpty(t, zoe.ID)

	code, r = s.makeRequest(t, http.MethodPut, "/session/filter", map[string]string{"filter": "zo"})
	require.Equal(t, http.StatusOK, code)
	v = decodeView(t, r)
	require.Len(t, v.Cards, 1)
	assert.Equal(t, zoe.ID, v.Cards[0].ID)

	code, _ = s.makeRequest(t, http.MethodPost, "/session/delete/"+zoe.ID+"/request", nil)
	require.Equal(t, http.StatusOK, code)
	code, r = s.makeRequest(t, http.MethodPost, "/session/delete/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	v = decodeView(t, r)
	assert.True(t, v.Empty)
	assert.Equal(t, patientService.MsgDeleted, v.Toast.Message)

	resp, err = s.Client().Get(s.URL + "/api/v1/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `e2e_directory_mutations_total{operation="patient.created"} 1`)
	assert.Contains(t, string(body), `e2e_directory_patients 2`)
}

func TestAPI_LoadFailure(t *testing.T) {
	s := startServer(t, serveUpstream(http.StatusInternalServerError, `{"error":"down"}`))

	code, r := s.makeRequest(t, http.MethodGet, "/directory", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, r.IsSuccess())

	v := decodeView(t, r)
	assert.False(t, v.Loading)
	assert.True(t, v.Empty)
	assert.True(t, v.Toast.Visible)
	assert.Equal(t, model.ToastError, v.Toast.Kind)
	assert.Equal(t, "Error!", v.Toast.Title)
	assert.Equal(t, patientService.MsgLoadFailed, v.Toast.Message)

	code, _ = s.makeRequest(t, http.MethodPost, "/patients", map[string]string{"name": "Zoe"})
	assert.Equal(t, http.StatusCreated, code, "adding works after a failed load")
}

func TestAPI_MisconfiguredBaseURL(t *testing.T) {
	for _, base := range []string{"localhost:3000", "api.example.com", "ftp://x"} {
		t.Run(base, func(t *testing.T) {
			s := startServerWithBase(t, base)

			code, r := s.makeRequest(t, http.MethodGet, "/directory", nil)
			require.Equal(t, http.StatusOK, code)

			v := decodeView(t, r)
			assert.False(t, v.Loading)
			assert.True(t, v.Empty)
			assert.True(t, v.Toast.Visible)
			assert.Equal(t, model.ToastError, v.Toast.Kind)
			assert.Equal(t, patientService.MsgLoadFailed, v.Toast.Message)
		})
	}
}

func TestAPI_ValidationEnvelope(t *testing.T) {
	s := startServer(t, serveUpstream(http.StatusOK, `[]`))

	code, r := s.makeRequest(t, http.MethodPost, "/session/add/submit", map[string]string{"name": " ", "website": "zoe.example"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "error", r.Status)
	assert.Equal(t, map[string]string{
		"name":    "Name is required",
		"website": "Please enter a valid URL (starting with http:// or https://)",
	}, r.Errors)
}

func TestBrokerConfig(t *testing.T) {
	got := brokerConfig(config.RedisConfig{
		URL:          "redis://localhost:6379/0",
		Channel:      "events",
		MaxRetries:   5,
		RetryBackoff: 250 * time.Millisecond,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	assert.Equal(t, redis.Config{
		URL:          "redis://localhost:6379/0",
		MaxRetries:   5,
		RetryBackoff: 250 * time.Millisecond,
		PoolSize:     20,
		MinIdleConns: 2,
	}, got)
}

func TestNewPublisher_FallsBackWithoutRedis(t *testing.T) {
	ctx := context.Background()

	pub, closeFn := newPublisher(ctx, config.RedisConfig{}, zerolog.Nop())
	assert.IsType(t, &messaging.LogPublisher{}, pub)
	closeFn()

	pub, closeFn = newPublisher(ctx, config.RedisConfig{
		URL:          "redis://127.0.0.1:1/0",
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	}, zerolog.Nop())
	assert.IsType(t, &messaging.LogPublisher{}, pub, "unreachable redis")
	closeFn()
}
