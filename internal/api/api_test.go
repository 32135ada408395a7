package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"medvault-server/config"
	"medvault-server/internal/appointment"
	"medvault-server/internal/auth"
	"medvault-server/internal/database/dbtest"
	"medvault-server/internal/drive"
	"medvault-server/internal/medication"
	"medvault-server/internal/storage"

	"github.com/gin-gonic/gin"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	cfg := &config.Config{
		Server: config.ServerConfig{LoginRatePerMinute: 100},
		JWT:    config.JWTConfig{Secret: "api-test", Expiration: "1h"},
	}
	router := SetupRouter(cfg, Services{
		Auth:         auth.NewService(db, &cfg.JWT),
		Files:        drive.NewService(drive.NewRepository(db), storage.NewMemory(), drive.Options{}),
		Medications:  medication.NewRepository(db),
		Appointments: appointment.NewRepository(db),
	})
	return &server{t: t, router: router}
}

func (s *server) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

func (s *server) send(req *http.Request) *httptest.ResponseRecorder {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) decode(w *httptest.ResponseRecorder, want int, v any) {
	s.t.Helper()
	if w.Code != want {
		s.t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			s.t.Fatal(err)
		}
	}
}

func (s *server) register(email string) {
	s.t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	s.decode(s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": email, "password": "correct horse", "name": "Ada",
	}), http.StatusOK, &resp)
	s.token = resp.Token
}

type entryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/api/files", "/api/medications", "/api/appointments", "/api/auth/me", "/api/storage/usage"} {
		if w := s.do(http.MethodGet, path, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
	if w := s.do(http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: %d", w.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	s.register("ada@example.com")

	var me struct {
		Email string `json:"email"`
	}
	s.decode(s.do(http.MethodGet, "/api/auth/me", nil), http.StatusOK, &me)
	if me.Email != "ada@example.com" {
		t.Fatalf("me = %+v", me)
	}

	s.decode(s.do(http.MethodPost, "/api/auth/logout", nil), http.StatusOK, nil)
	if w := s.do(http.MethodGet, "/api/auth/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("token still valid after logout: %d", w.Code)
	}

	s.token = ""
	var errResp struct {
		Code string `json:"code"`
	}
	s.decode(s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ada@example.com", "password": "nope"}),
		http.StatusUnauthorized, &errResp)
	if errResp.Code != "UNAUTHENTICATED" {
		t.Errorf("code = %q", errResp.Code)
	}
	s.decode(s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "ada@example.com", "password": "correct horse", "name": "Ada",
	}), http.StatusConflict, nil)
}

func TestFileRoutes(t *testing.T) {
	s := newServer(t)
	s.register("ada@example.com")

	var folder entryJSON
	s.decode(s.do(http.MethodPost, "/api/files/folder", gin.H{"name": "labs"}), http.StatusCreated, &folder)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("parent_id", folder.ID)
	fw, _ := mw.CreateFormFile("file", "result.txt")
	fw.Write([]byte("cholesterol: fine"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var file entryJSON
	s.decode(s.send(req), http.StatusCreated, &file)
	if file.Type != "file" || file.Name != "result.txt" {
		t.Fatalf("file = %+v", file)
	}

	var listing struct {
		Folders []entryJSON `json:"folders"`
		Files   []entryJSON `json:"files"`
	}
	s.decode(s.do(http.MethodGet, "/api/files?parent_id="+folder.ID, nil), http.StatusOK, &listing)
	if len(listing.Folders) != 0 || len(listing.Files) != 1 || listing.Files[0].ID != file.ID {
		t.Fatalf("listing = %+v", listing)
	}

	w := s.do(http.MethodGet, "/api/files/"+file.ID+"/download", nil)
	if w.Code != http.StatusOK || w.Body.String() != "cholesterol: fine" {
		t.Fatalf("download: %d %q", w.Code, w.Body.String())
	}

	var preview struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	s.decode(s.do(http.MethodGet, "/api/preview/"+file.ID, nil), http.StatusOK, &preview)
	if preview.Type != "text" || preview.Content != "cholesterol: fine" {
		t.Fatalf("preview = %+v", preview)
	}

	var renamed entryJSON
	s.decode(s.do(http.MethodPut, "/api/files/"+file.ID, gin.H{"name": "lipids.txt"}), http.StatusOK, &renamed)
	if renamed.Name != "lipids.txt" {
		t.Fatalf("renamed = %+v", renamed)
	}

	s.decode(s.do(http.MethodPut, "/api/files/"+folder.ID+"/move", gin.H{"parent_id": folder.ID}), http.StatusBadRequest, nil)
	s.decode(s.do(http.MethodPut, "/api/files/"+file.ID+"/move", gin.H{"parent_id": nil}), http.StatusOK, nil)

	var usage struct {
		UsedBytes int64 `json:"used_bytes"`
	}
	s.decode(s.do(http.MethodGet, "/api/storage/usage", nil), http.StatusOK, &usage)
	if usage.UsedBytes != int64(len("cholesterol: fine")) {
		t.Fatalf("usage = %+v", usage)
	}

	s.decode(s.do(http.MethodDelete, "/api/files/"+file.ID, nil), http.StatusOK, nil)
	s.decode(s.do(http.MethodGet, "/api/files/"+file.ID+"/url", nil), http.StatusNotFound, nil)
}

func TestMedicationRoutes(t *testing.T) {
	s := newServer(t)
	s.register("ada@example.com")

	var med struct {
		ID               string `json:"id"`
		RemainingDays    int    `json:"remaining_days"`
		PercentRemaining int    `json:"percent_remaining"`
	}
	s.decode(s.do(http.MethodPost, "/api/medications", gin.H{
		"name": "Paracetamol", "dosage": "500mg", "schedule": "Twice daily", "total_days": 30,
	}), http.StatusCreated, &med)
	if med.RemainingDays != 30 || med.PercentRemaining != 100 {
		t.Fatalf("med = %+v", med)
	}

	s.decode(s.do(http.MethodPost, "/api/medications/"+med.ID+"/increment", nil), http.StatusOK, &med)
	if med.RemainingDays != 30 {
		t.Fatalf("increment went past the total: %+v", med)
	}

	s.decode(s.do(http.MethodPost, "/api/medications", gin.H{"name": "x"}), http.StatusBadRequest, nil)
	s.decode(s.do(http.MethodDelete, "/api/medications/"+med.ID, nil), http.StatusOK, nil)
	s.decode(s.do(http.MethodGet, "/api/medications/"+med.ID, nil), http.StatusNotFound, nil)
}

func TestAppointmentRoutes(t *testing.T) {
	s := newServer(t)
	s.register("ada@example.com")

	for _, date := range []string{"2099-05-01", "2000-03-01"} {
		s.decode(s.do(http.MethodPost, "/api/appointments", gin.H{
			"doctor": "Dr. Rao", "speciality": "Cardiology", "date": date, "time": "09:30", "location": "City Clinic",
		}), http.StatusCreated, nil)
	}

	var resp struct {
		Appointments []struct {
			Date          string `json:"date"`
			TimeRemaining string `json:"time_remaining"`
		} `json:"appointments"`
	}
	s.decode(s.do(http.MethodGet, "/api/appointments", nil), http.StatusOK, &resp)
	if len(resp.Appointments) != 2 || resp.Appointments[0].Date != "2000-03-01" || resp.Appointments[0].TimeRemaining != "Past" {
		t.Fatalf("appointments = %+v", resp.Appointments)
	}

	s.decode(s.do(http.MethodPost, "/api/appointments", gin.H{
		"doctor": "Dr. Rao", "speciality": "Cardiology", "date": "01/05/2099", "time": "09:30", "location": "City Clinic",
	}), http.StatusBadRequest, nil)
}
