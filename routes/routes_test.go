package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/phillip/charity-campaigns-go/config"
	models "github.com/phillip/charity-campaigns-go/models"
)

type recordingImages struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (r *recordingImages) Upload(_ context.Context, _ io.Reader, filename string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url := "https://res.cloudinary.com/demo/image/upload/v1/campaigns/" + filename
	r.uploaded = append(r.uploaded, url)
	return url, nil
}

func (r *recordingImages) Delete(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, url)
	return nil
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("image", file)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("png-bytes"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type server struct {
	t      *testing.T
	cfg    *config.Config
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		CORSOrigins:    []string{"http://localhost:5173"},
		LoginRateLimit: 0,
		AdminEmail:     "admin@example.com",
		AdminPassword:  "admin-pass",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	require.NoError(t, cfg.Connect(context.Background()))
	return &server{t: t, cfg: cfg, router: NewRouter(cfg)}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *server) register(name, email string) authResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": "secret123"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authResponse](s.t, w)
}

func (s *server) login(email, password string) authResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[authResponse](s.t, w)
}

func (s *server) createCampaign(token string) models.Campaign {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/campaigns", token, gin.H{
		"title":       "Clean water",
		"description": "A well for the village",
		"goal":        "1000",
		"image":       "https://img.example/well.png",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Campaign](s.t, w)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","storage":"ok"}`, w.Body.String())
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Eve", "email": "eve@example.com", "password": "secret123", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode[authResponse](t, w)
	assert.Equal(t, models.RoleDonor, res.User.Role)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginFailures(t *testing.T) {
	s := newServer(t)
	s.register("Alice", "alice@example.com")

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/campaigns"},
		{http.MethodGet, "/api/campaigns/my"},
		{http.MethodPost, "/api/campaigns/0123456789abcdef01234567/donate"},
		{http.MethodGet, "/api/users/profile"},
		{http.MethodGet, "/api/users"},
	} {
		w := s.do(tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)

		w = s.do(tc.method, tc.path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestCampaignFlow(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")
	donor := s.register("Dan", "dan@example.com")

	created := s.createCampaign(owner.Token)
	assert.Equal(t, 1000.0, created.Goal)
	assert.Equal(t, 0.0, created.Raised)
	assert.Empty(t, created.Donations)

	// public list and detail
	w := s.do(http.MethodGet, "/api/campaigns", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Campaign](t, w)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Owner)
	assert.Equal(t, "olive@example.com", list[0].Owner.Email)

	path := "/api/campaigns/" + created.ID.Hex()
	w = s.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	// donations
	w = s.do(http.MethodPost, path+"/donate", donor.Token, gin.H{"donorName": "Alice", "amount": 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, path+"/donate", donor.Token, gin.H{"donor_name": "Bob", "amount": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Message  string          `json:"message"`
		Campaign models.Campaign `json:"campaign"`
	}](t, w)
	assert.Equal(t, "Donation successful", res.Message)
	assert.Equal(t, 500.0, res.Campaign.Raised)
	require.Len(t, res.Campaign.Donations, 2)
	assert.Equal(t, "Alice", res.Campaign.Donations[0].Name)
	assert.Equal(t, "Bob", res.Campaign.Donations[1].Name)

	// the cached representation is stale now
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = s.do(http.MethodPost, path+"/donate", donor.Token, gin.H{"donorName": "Zero", "amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/campaigns/0123456789abcdef01234567/donate", donor.Token, gin.H{"amount": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// non-owner cannot change or delete
	w = s.do(http.MethodPut, path, donor.Token, gin.H{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, path, donor.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// owner partial update
	w = s.do(http.MethodPut, path, owner.Token, gin.H{"title": "Clean water 2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Campaign](t, w)
	assert.Equal(t, "Clean water 2", updated.Title)
	assert.Equal(t, "A well for the village", updated.Description)
	assert.Equal(t, 1000.0, updated.Goal)
	assert.Equal(t, 500.0, updated.Raised)

	w = s.do(http.MethodPut, path, owner.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// my campaigns
	w = s.do(http.MethodGet, "/api/campaigns/my", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Campaign](t, w), 1)
	w = s.do(http.MethodGet, "/api/campaigns/my", donor.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"No campaigns found for this user"}`, w.Body.String())

	// delete
	w = s.do(http.MethodDelete, path, owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOverridesOwnership(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")
	admin := s.login("admin@example.com", "admin-pass")
	created := s.createCampaign(owner.Token)
	path := "/api/campaigns/" + created.ID.Hex()

	w := s.do(http.MethodPut, path, admin.Token, gin.H{"goal": 5000, "end_date": "2027-06-30"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Campaign](t, w)
	assert.Equal(t, 5000.0, got.Goal)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, owner.User.ID, got.CreatedBy)

	w = s.do(http.MethodDelete, path, admin.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateWithForm(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")
	created := s.createCampaign(owner.Token)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", ""))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/campaigns/"+created.ID.Hex(), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner.Token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Campaign](t, w)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, "Clean water", got.Title)
	assert.Equal(t, created.Image, got.Image)
}

func TestImageUploadWithoutStoreIsRejected(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "With image"))
	require.NoError(t, mw.WriteField("goal", "50"))
	fw, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner.Token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileAndAdminUsers(t *testing.T) {
	s := newServer(t)
	alice := s.register("Alice", "alice@example.com")
	admin := s.login("admin@example.com", "admin-pass")

	w := s.do(http.MethodGet, "/api/users/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decode[models.User](t, w).Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(http.MethodPut, "/api/users/profile", alice.Token, gin.H{"name": "Alice Doe", "role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[struct {
		User models.User `json:"user"`
	}](t, w)
	assert.Equal(t, "Alice Doe", profile.User.Name)
	assert.Equal(t, models.RoleDonor, profile.User.Role)

	// donors are kept out of admin routes
	w = s.do(http.MethodGet, "/api/users", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 2)
	assert.NotContains(t, w.Body.String(), "password")

	userPath := "/api/users/" + alice.User.ID.Hex()
	w = s.do(http.MethodPut, userPath, admin.Token, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the promotion applies to Alice's existing token
	w = s.do(http.MethodGet, "/api/users", alice.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, userPath, admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, userPath, admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// deleted accounts lose access immediately
	w = s.do(http.MethodGet, "/api/users/profile", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/campaigns", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Long", "email": "long@example.com", "password": strings.Repeat("a", 80),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestListETagFollowsOwnerRename(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")
	s.createCampaign(owner.Token)

	w := s.do(http.MethodGet, "/api/campaigns", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = s.do(http.MethodPut, "/api/users/profile", owner.Token, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Campaign](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Owner.Name)
}

func TestUpdateAnswersWithOwner(t *testing.T) {
	s := newServer(t)
	owner := s.register("Olive", "olive@example.com")
	created := s.createCampaign(owner.Token)

	w := s.do(http.MethodPut, "/api/campaigns/"+created.ID.Hex(), owner.Token, gin.H{"title": "Renamed well"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Campaign](t, w)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "olive@example.com", got.Owner.Email)
}

func TestFailedWriteDiscardsUploadedImage(t *testing.T) {
	s := newServer(t)
	images := &recordingImages{}
	s.cfg.Images = images
	owner := s.register("Olive", "olive@example.com")
	created := s.createCampaign(owner.Token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, http.MethodPut, "/api/campaigns/"+created.ID.Hex(),
		owner.Token, map[string]string{"title": ""}, "roof.png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, http.MethodPost, "/api/campaigns",
		owner.Token, map[string]string{"title": "No goal"}, "well.png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	images.mu.Lock()
	defer images.mu.Unlock()
	require.Len(t, images.uploaded, 2)
	assert.Equal(t, images.uploaded, images.deleted)
}

func TestUploadedImageIsStored(t *testing.T) {
	s := newServer(t)
	s.cfg.Images = &recordingImages{}
	owner := s.register("Olive", "olive@example.com")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, http.MethodPost, "/api/campaigns",
		owner.Token, map[string]string{"title": "With image", "goal": "50"}, "well.png"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[models.Campaign](t, w)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/campaigns/well.png", got.Image)
}

func TestRefreshToken(t *testing.T) {
	s := newServer(t)
	alice := s.register("Alice", "alice@example.com")

	w := s.do(http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/refresh", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[authResponse](t, w)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, alice.User.ID, res.User.ID)

	w = s.do(http.MethodGet, "/api/users/profile", res.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
