package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebot/carebot-api/internal/config"
	"github.com/carebot/carebot-api/internal/service"
	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/filestore"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testAPI struct {
	router    *gin.Engine
	store     *store.Store
	uploadDir string
}

func newTestAPI(t *testing.T, mutate func(*config.Config)) *testAPI {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Name:        "carebot-api",
			Environment: "test",
			Version:     "1.0.0",
		},
		Upload: config.UploadConfig{
			Dir:         t.TempDir(),
			MaxFileSize: 1 << 20,
			AllowedTypes: []string{
				"application/pdf",
				"image/png",
			},
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	log := zap.NewNop()
	st := store.Open("", log)
	if err := st.Load(); err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}

	patients := service.NewPatientService(st, log, nil)
	documents := service.NewDocumentService(st, log, nil)
	sessions := service.NewSessionService(st, log, nil)
	uploads := service.NewUploadService(files, patients, documents, sessions, cfg.Upload, log, nil)
	db := service.NewDatabaseService(st)

	h := New(patients, documents, uploads, db, cfg, log)
	return &testAPI{
		router:    NewRouter(h, cfg, log, nil),
		store:     st,
		uploadDir: cfg.Upload.Dir,
	}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return env
}

// multipartUpload builds the form the upload endpoint expects. An empty
// filename omits the file part entirely.
func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload-patient-document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadFields(name, contact string) map[string]string {
	return map[string]string{
		"patientName":   name,
		"contactNumber": contact,
		"uploadedBy":    "dr.smith",
	}
}

func uploadDocument(t *testing.T, api *testAPI, name, contact string) envelope {
	t.Helper()
	req := multipartUpload(t, uploadFields(name, contact), "scan.pdf", "application/pdf", []byte("hello world"))
	w := api.do(t, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	return decodeEnvelope(t, w)
}

func uploadDirCount(t *testing.T, api *testAPI) int {
	t.Helper()
	entries, err := os.ReadDir(api.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestUpload_Created(t *testing.T) {
	api := newTestAPI(t, nil)

	env := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	if !env.Success {
		t.Error("expected success envelope")
	}
	if env.Message != "Document uploaded and saved successfully" {
		t.Errorf("message = %q", env.Message)
	}
	if env.Data["uploadId"] == "" {
		t.Error("expected uploadId in payload")
	}
	if env.Data["filename"] != "scan.pdf" {
		t.Errorf("filename = %v", env.Data["filename"])
	}

	patient, _ := env.Data["patient"].(map[string]any)
	if patient["name"] != "Jane Doe" || patient["contactNumber"] != "+1-555-0100" {
		t.Errorf("patient summary = %v", patient)
	}
	doc, _ := env.Data["document"].(map[string]any)
	if doc["mimeType"] != "application/pdf" || doc["size"] != float64(11) {
		t.Errorf("document summary = %v", doc)
	}
	sess, _ := env.Data["session"].(map[string]any)
	if sess["status"] != "completed" {
		t.Errorf("session status = %v", sess["status"])
	}

	if got := uploadDirCount(t, api); got != 1 {
		t.Errorf("expected 1 file on disk, got %d", got)
	}
}

func TestUpload_NoFile(t *testing.T) {
	api := newTestAPI(t, nil)

	req := multipartUpload(t, uploadFields("Jane Doe", "+1-555-0100"), "", "", nil)
	w := api.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.Message != "No file uploaded" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestUpload_MissingContactNumber(t *testing.T) {
	api := newTestAPI(t, nil)

	fields := map[string]string{"patientName": "Jane Doe"}
	req := multipartUpload(t, fields, "scan.pdf", "application/pdf", []byte("hello"))
	w := api.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Success || !strings.Contains(env.Message, "contactNumber") {
		t.Errorf("envelope = %+v", env)
	}
	// The rejected file must not linger on disk.
	if got := uploadDirCount(t, api); got != 0 {
		t.Errorf("expected upload dir cleaned, found %d files", got)
	}
	if api.store.Stats().TotalSessions != 0 {
		t.Error("expected no records created")
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	api := newTestAPI(t, nil)

	req := multipartUpload(t, uploadFields("Jane Doe", "+1-555-0100"), "archive.zip", "application/zip", []byte("PK"))
	w := api.do(t, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := uploadDirCount(t, api); got != 0 {
		t.Errorf("expected nothing written to disk, found %d files", got)
	}
	stats := api.store.Stats()
	if stats.TotalPatients != 0 || stats.TotalDocuments != 0 || stats.TotalSessions != 0 {
		t.Errorf("expected no records, got %+v", stats)
	}
}

func TestUpload_FileTooLarge(t *testing.T) {
	api := newTestAPI(t, func(cfg *config.Config) {
		cfg.Upload.MaxFileSize = 4
	})

	req := multipartUpload(t, uploadFields("Jane Doe", "+1-555-0100"), "scan.pdf", "application/pdf", []byte("hello world"))
	w := api.do(t, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !strings.Contains(env.Message, "File too large") {
		t.Errorf("message = %q", env.Message)
	}
}

func TestUpload_SameContactReusesPatient(t *testing.T) {
	api := newTestAPI(t, nil)

	first := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	second := uploadDocument(t, api, "Jane R. Doe", "+1-555-0100")

	firstPatient, _ := first.Data["patient"].(map[string]any)
	secondPatient, _ := second.Data["patient"].(map[string]any)
	if firstPatient["id"] != secondPatient["id"] {
		t.Error("expected same patient id for same contact number")
	}
	if secondPatient["name"] != "Jane R. Doe" {
		t.Errorf("expected name updated, got %v", secondPatient["name"])
	}
	if api.store.Stats().TotalPatients != 1 {
		t.Errorf("TotalPatients = %d", api.store.Stats().TotalPatients)
	}
}

func TestUpdateDocumentStatus(t *testing.T) {
	api := newTestAPI(t, nil)
	env := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	uploadID, _ := env.Data["uploadId"].(string)

	body := strings.NewReader(`{"status":"processed","notes":"reviewed by staff"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/documents/"+uploadID+"/status", body)
	req.Header.Set("Content-Type", "application/json")
	w := api.do(t, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := decodeEnvelope(t, w)
	if got.Message != "Document status updated successfully" {
		t.Errorf("message = %q", got.Message)
	}
	if got.Data["status"] != "processed" || got.Data["notes"] != "reviewed by staff" {
		t.Errorf("data = %v", got.Data)
	}
}

func TestUpdateDocumentStatus_InvalidStatus(t *testing.T) {
	api := newTestAPI(t, nil)
	env := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	uploadID, _ := env.Data["uploadId"].(string)

	body := strings.NewReader(`{"status":"frobnicated"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/documents/"+uploadID+"/status", body)
	req.Header.Set("Content-Type", "application/json")
	w := api.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	got := decodeEnvelope(t, w)
	if !strings.Contains(got.Message, "uploaded, processed, archived, deleted") {
		t.Errorf("message = %q", got.Message)
	}

	// Document must be untouched after the rejection.
	docs, _ := api.store.ListDocuments(10, 0)
	if len(docs) != 1 || string(docs[0].Status) != "uploaded" {
		t.Errorf("expected document unchanged, got %+v", docs)
	}
}

func TestUpdateDocumentStatus_BadBody(t *testing.T) {
	api := newTestAPI(t, nil)
	env := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	uploadID, _ := env.Data["uploadId"].(string)

	req := httptest.NewRequest(http.MethodPatch, "/api/documents/"+uploadID+"/status", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	w := api.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeEnvelope(t, w); got.Message != "Invalid request body" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestUpdateDocumentStatus_NotFound(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		body := strings.NewReader(`{"status":"processed"}`)
		req := httptest.NewRequest(http.MethodPatch, "/api/documents/"+id+"/status", body)
		req.Header.Set("Content-Type", "application/json")
		w := api.do(t, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("id %q: status = %d", id, w.Code)
		}
	}
}

func TestListPatients(t *testing.T) {
	api := newTestAPI(t, nil)
	for i := 0; i < 4; i++ {
		uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	}
	uploadDocument(t, api, "John Roe", "+1-555-0200")

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Data["total"] != float64(2) {
		t.Errorf("total = %v", env.Data["total"])
	}

	patients, _ := env.Data["patients"].([]any)
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}
	var jane map[string]any
	for _, raw := range patients {
		p, _ := raw.(map[string]any)
		if p["name"] == "Jane Doe" {
			jane = p
		}
	}
	if jane == nil {
		t.Fatal("Jane Doe missing from listing")
	}
	if jane["documentCount"] != float64(4) {
		t.Errorf("documentCount = %v", jane["documentCount"])
	}
	recent, _ := jane["recentDocuments"].([]any)
	if len(recent) != 3 {
		t.Errorf("expected recent documents capped at 3, got %d", len(recent))
	}
}

func TestGetPatient(t *testing.T) {
	api := newTestAPI(t, nil)
	env := uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	patientSummary, _ := env.Data["patient"].(map[string]any)
	patientID, _ := patientSummary["id"].(string)

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/patients/"+patientID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := decodeEnvelope(t, w)
	detail, _ := got.Data["patient"].(map[string]any)
	if detail["name"] != "Jane Doe" {
		t.Errorf("name = %v", detail["name"])
	}
	docs, _ := detail["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc, _ := docs[0].(map[string]any)
	if doc["originalFilename"] != "scan.pdf" || doc["uploadedBy"] != "dr.smith" {
		t.Errorf("document row = %v", doc)
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	api := newTestAPI(t, nil)

	// Unknown ids and unparseable ids both read as "no such patient".
	for _, id := range []string{uuid.NewString(), "12345"} {
		w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/patients/"+id, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("id %q: status = %d", id, w.Code)
		}
		if env := decodeEnvelope(t, w); env.Message != "Patient not found" {
			t.Errorf("id %q: message = %q", id, env.Message)
		}
	}
}

func TestListDocuments_Pagination(t *testing.T) {
	api := newTestAPI(t, nil)
	for i := 0; i < 3; i++ {
		uploadDocument(t, api, "Jane Doe", "+1-555-0100")
	}

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/patient-documents?page=2&limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)

	docs, _ := env.Data["documents"].([]any)
	if len(docs) != 1 {
		t.Errorf("expected 1 document on the last page, got %d", len(docs))
	}
	pg, _ := env.Data["pagination"].(map[string]any)
	if pg["page"] != float64(2) || pg["limit"] != float64(2) || pg["total"] != float64(3) || pg["totalPages"] != float64(2) {
		t.Errorf("pagination = %v", pg)
	}

	doc, _ := docs[0].(map[string]any)
	patientSummary, _ := doc["patient"].(map[string]any)
	if patientSummary["contactNumber"] != "+1-555-0100" {
		t.Errorf("expected patient summary on document, got %v", doc["patient"])
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	uploadDocument(t, api, "Jane Doe", "+1-555-0100")

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	// Health is a flat probe document, not the standard envelope.
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, hasEnvelope := body["success"]; hasEnvelope {
		t.Error("health response must not be enveloped")
	}
	if body["status"] != "healthy" || body["database"] != "connected" || body["type"] != "json-file" {
		t.Errorf("health = %v", body)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["total_patients"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, nil)
	uploadDocument(t, api, "Jane Doe", "+1-555-0100")

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	stats, _ := env.Data["statistics"].(map[string]any)
	if stats["totalPatients"] != float64(1) || stats["totalDocuments"] != float64(1) {
		t.Errorf("statistics = %v", stats)
	}
	if stats["totalStorageUsed"] != float64(11) {
		t.Errorf("totalStorageUsed = %v", stats["totalStorageUsed"])
	}
	if stats["storageUsedMB"] != float64(0) {
		t.Errorf("storageUsedMB = %v", stats["storageUsedMB"])
	}
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Message != "Endpoint not found" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := api.do(t, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/patients", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = api.do(t, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow header for unknown origin: %q", got)
	}
}
