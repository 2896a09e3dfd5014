package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/core/imagesource"
	"azure-face-go/internal/core/models"
	"azure-face-go/internal/core/processor"
	"azure-face-go/internal/core/registry"
	"azure-face-go/internal/db/repository"
	"azure-face-go/internal/server/sse"
	"azure-face-go/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerFixture struct {
	router *gin.Engine
	repo   *repository.SQLiteRepository
}

func newHandlerFixture(t *testing.T, apiURL string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Azure: config.AzureConfig{
			TimeoutSeconds:         2,
			DetectionModel:         "detection_03",
			RecognitionModel:       "recognition_04",
			ConfidenceThreshold:    0.7,
			MaxCandidates:          2,
			PollIntervalSeconds:    1,
			TrainingTimeoutSeconds: 5,
			Profiles: []config.AzureProfile{
				{ID: "primary", Endpoint: apiURL, APIKey: "secret-key", PersonGroupID: "family"},
			},
		},
		Cameras: map[string]config.CameraConfig{
			"front_door": {SnapshotURL: apiURL + "/snapshot"},
		},
	}

	reg, err := registry.NewFromConfig(cfg.Azure)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.ServiceEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	journal := repository.NewSQLiteRepository(db)

	resolver := imagesource.NewResolver(cfg.Cameras)
	notifier := services.NewNotifierService(nil, nil)
	faceService := services.NewFaceService(reg, resolver, notifier, journal, cfg)

	pool := processor.NewWorkerPool(faceService)
	t.Cleanup(pool.Shutdown)

	handler := NewAPIHandler(cfg, faceService, pool, reg, sse.NewHub(), journal, nil)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"))

	return &handlerFixture{router: router, repo: journal}
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRecognizeWithImageData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/detect", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"faceId": "face-1", "faceRectangle": {"top": 1, "left": 2, "width": 3, "height": 4}}]`)
	})
	mux.HandleFunc("/face/v1.0/identify", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"faceId": "face-1", "candidates": [{"personId": "person-1", "confidence": 0.92}]}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/recognize", gin.H{
		"image_data": testImageBase64(t),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		FacesDetected   int `json:"faces_detected"`
		Identifications []struct {
			FaceID     string `json:"face_id"`
			Candidates []struct {
				PersonID   string  `json:"person_id"`
				Confidence float64 `json:"confidence"`
			} `json:"candidates"`
		} `json:"identifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.FacesDetected != 1 {
		t.Errorf("expected 1 detected face, got %d", response.FacesDetected)
	}
	if len(response.Identifications) != 1 || response.Identifications[0].Candidates[0].PersonID != "person-1" {
		t.Errorf("unexpected identifications: %+v", response.Identifications)
	}
}

func TestRecognizeCameraRunsThroughPool(t *testing.T) {
	snapshot, err := base64.StdEncoding.DecodeString(testImageBase64(t))
	if err != nil {
		t.Fatalf("failed to decode test image: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Write(snapshot)
	})
	mux.HandleFunc("/face/v1.0/detect", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/recognize", gin.H{
		"camera": "front_door",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		FacesDetected int    `json:"faces_detected"`
		Outcome       string `json:"outcome"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.FacesDetected != 0 {
		t.Errorf("expected 0 detected faces, got %d", response.FacesDetected)
	}
	if response.Outcome != processor.OutcomeNoFaceDetected {
		t.Errorf("expected outcome %q, got %q", processor.OutcomeNoFaceDetected, response.Outcome)
	}
}

func TestRecognizeRequiresSource(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/recognize", gin.H{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecognizeAuthenticationFailureMapsTo401(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/detect", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": "401", "message": "Access denied due to invalid subscription key."}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/recognize", gin.H{
		"image_data": testImageBase64(t),
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error == "" {
		t.Error("expected an error message in the response")
	}
}

func TestCreatePersonRequiresName(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/persons", gin.H{
		"user_data": "no name given",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreatePersonReturnsCreated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/family/persons", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"personId": "person-9"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/persons", gin.H{
		"name": "Ada",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var person struct {
		PersonID string `json:"personId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &person); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if person.PersonID != "person-9" {
		t.Errorf("expected person id person-9, got %q", person.PersonID)
	}
}

func TestUploadPersonImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/family/persons/person-1/persistedFaces", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"persistedFaceId": "pf-7"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/persons/person-1/images", gin.H{
		"image_data": testImageBase64(t),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var face struct {
		PersistedFaceID string `json:"persistedFaceId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &face); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if face.PersistedFaceID != "pf-7" {
		t.Errorf("expected persisted face pf-7, got %q", face.PersistedFaceID)
	}
}

func TestCreateGroup(t *testing.T) {
	created := false
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/team", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			created = true
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/groups", gin.H{
		"group_id": "team",
		"name":     "The Team",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !created {
		t.Error("expected the group to be created upstream")
	}
}

func TestCreateGroupRequiresIDAndName(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/groups", gin.H{
		"group_id": "team",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTrainGroupQuotaMapsTo429(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/family/train", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": "429", "message": "Rate limit is exceeded."}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodPost, "/api/groups/family/train", nil)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetTrainingStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/family/training", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "succeeded", "createdTime": "2025-04-01T10:00:00Z"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/groups/family/training", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Status != "succeeded" {
		t.Errorf("expected status succeeded, got %q", status.Status)
	}
}

func TestListPersons(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups/family/persons", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"personId": "person-1", "name": "Ada"}, {"personId": "person-2", "name": "Grace"}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/persons", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var persons []struct {
		PersonID string `json:"personId"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &persons); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(persons) != 2 || persons[1].Name != "Grace" {
		t.Errorf("unexpected persons: %+v", persons)
	}
}

func TestListGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"personGroupId": "family", "name": "Family"}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/groups", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var groups []struct {
		PersonGroupID string `json:"personGroupId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &groups); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(groups) != 1 || groups[0].PersonGroupID != "family" {
		t.Errorf("unexpected groups: %+v", groups)
	}
}

func TestListGroupsUnknownProfile(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/groups?profile_id=ghost", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListEventsPagination(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 3; i++ {
		event := &models.ServiceEvent{
			EventID:   fmt.Sprintf("evt-%d", i),
			Action:    models.ActionRecognizeFace,
			ProfileID: "primary",
			Status:    models.StatusOK,
		}
		event.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := fixture.repo.SaveEvent(event); err != nil {
			t.Fatalf("failed to seed journal: %v", err)
		}
	}

	w := performRequest(fixture.router, http.MethodGet, "/api/events?page=1&pageSize=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Events     []models.ServiceEvent `json:"events"`
		Pagination struct {
			Page     int   `json:"page"`
			PageSize int   `json:"pageSize"`
			Total    int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Events) != 2 {
		t.Fatalf("expected 2 events on the page, got %d", len(response.Events))
	}
	if response.Events[0].EventID != "evt-3" {
		t.Errorf("expected newest event first, got %q", response.Events[0].EventID)
	}
	if response.Pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", response.Pagination.Total)
	}
}

func TestListEventsActionFilter(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)

	actions := []string{models.ActionRecognizeFace, models.ActionTrainGroup, models.ActionRecognizeFace}
	for i, action := range actions {
		event := &models.ServiceEvent{
			EventID:   fmt.Sprintf("evt-%d", i+1),
			Action:    action,
			ProfileID: "primary",
			Status:    models.StatusOK,
		}
		if err := fixture.repo.SaveEvent(event); err != nil {
			t.Fatalf("failed to seed journal: %v", err)
		}
	}

	w := performRequest(fixture.router, http.MethodGet, "/api/events?action="+models.ActionTrainGroup, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Events     []models.ServiceEvent `json:"events"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Pagination.Total != 1 || len(response.Events) != 1 {
		t.Fatalf("expected exactly one train_group event, got %+v", response)
	}
	if response.Events[0].Action != models.ActionTrainGroup {
		t.Errorf("expected action %q, got %q", models.ActionTrainGroup, response.Events[0].Action)
	}
}

func TestGetStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/status", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Status   string          `json:"status"`
		Profiles map[string]bool `json:"profiles"`
		MQTT     struct {
			Enabled   bool `json:"enabled"`
			Connected bool `json:"connected"`
		} `json:"mqtt"`
		System struct {
			WorkerCount int `json:"worker_count"`
			NumCPU      int `json:"num_cpu"`
		} `json:"system"`
		Journal struct {
			TotalEvents int64 `json:"total_events"`
		} `json:"journal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status ok, got %q", response.Status)
	}
	if !response.Profiles["primary"] {
		t.Error("expected profile primary to be reachable")
	}
	if response.MQTT.Enabled || response.MQTT.Connected {
		t.Errorf("expected MQTT to be disabled and disconnected, got %+v", response.MQTT)
	}
	if response.System.WorkerCount < 2 {
		t.Errorf("expected at least 2 workers, got %d", response.System.WorkerCount)
	}
}

func TestGetStatusDegradedWhenUnreachable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/face/v1.0/persongroups", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": "401", "message": "Access denied due to invalid subscription key."}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fixture := newHandlerFixture(t, server.URL)
	w := performRequest(fixture.router, http.MethodGet, "/api/status", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Status   string          `json:"status"`
		Profiles map[string]bool `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "degraded" {
		t.Errorf("expected status degraded, got %q", response.Status)
	}
	if response.Profiles["primary"] {
		t.Error("expected profile primary to be unreachable")
	}
}
