package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"azure-face-go/config"
	"azure-face-go/internal/core/imagesource"
	"azure-face-go/internal/core/models"
	"azure-face-go/internal/core/processor"
	"azure-face-go/internal/core/registry"
	"azure-face-go/internal/db/repository"
	"azure-face-go/internal/integrations/azureface"
	"azure-face-go/internal/integrations/mqtt"
	"azure-face-go/internal/server/sse"
	"azure-face-go/internal/services"

	"github.com/gin-gonic/gin"
)

// APIHandler serves the REST surface
type APIHandler struct {
	cfg         *config.Config
	faceService *services.FaceService
	pool        *processor.WorkerPool
	registry    *registry.Registry
	hub         *sse.Hub
	journal     repository.EventRepository
	mqttClient  *mqtt.Client // nil when MQTT is disabled
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(cfg *config.Config, faceService *services.FaceService, pool *processor.WorkerPool,
	reg *registry.Registry, hub *sse.Hub, journal repository.EventRepository, mqttClient *mqtt.Client) *APIHandler {
	return &APIHandler{
		cfg:         cfg,
		faceService: faceService,
		pool:        pool,
		registry:    reg,
		hub:         hub,
		journal:     journal,
		mqttClient:  mqttClient,
	}
}

// RegisterRoutes registers all API routes
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Recognition
	router.POST("/recognize", h.Recognize)

	// Person management
	router.GET("/persons", h.ListPersons)
	router.POST("/persons", h.CreatePerson)
	router.POST("/persons/:personId/images", h.UploadPersonImage)
	router.POST("/persons/:personId/train", h.TrainPerson)

	// Group management
	router.GET("/groups", h.ListGroups)
	router.POST("/groups", h.CreateGroup)
	router.POST("/groups/:groupId/train", h.TrainGroup)
	router.GET("/groups/:groupId/training", h.GetTrainingStatus)

	// Journal
	router.GET("/events", h.ListEvents)

	// System
	router.GET("/stream", h.Stream)
	router.GET("/status", h.GetStatus)
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	switch azureface.KindOf(err) {
	case azureface.KindInvalidImage:
		return http.StatusBadRequest
	case azureface.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case azureface.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case azureface.KindAPIError, azureface.KindTrainingFailed, azureface.KindTrainingTimeout:
		return http.StatusBadGateway
	default:
		// argument and acquisition problems
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

type recognizeRequest struct {
	Camera              string  `json:"camera"`
	ImageData           string  `json:"image_data"`
	ImagePath           string  `json:"image_path"`
	ImageURL            string  `json:"image_url"`
	ProfileID           string  `json:"profile_id"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

type createPersonRequest struct {
	Name      string `json:"name" binding:"required"`
	UserData  string `json:"user_data"`
	GroupID   string `json:"group_id"`
	ProfileID string `json:"profile_id"`
}

type createGroupRequest struct {
	GroupID          string `json:"group_id" binding:"required"`
	Name             string `json:"name" binding:"required"`
	UserData         string `json:"user_data"`
	RecognitionModel string `json:"recognition_model"`
	ProfileID        string `json:"profile_id"`
}

type personImageRequest struct {
	ImageData      string `json:"image_data"`
	ImagePath      string `json:"image_path"`
	ImageURL       string `json:"image_url"`
	DetectionModel string `json:"detection_model"`
	GroupID        string `json:"group_id"`
	ProfileID      string `json:"profile_id"`
}

// Recognize runs a recognition pass. Camera snapshots are dispatched through
// the worker pool; explicit image sources run directly.
func (h *APIHandler) Recognize(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	ctx := c.Request.Context()

	if req.ImageData == "" && req.ImagePath == "" && req.ImageURL == "" {
		if req.Camera == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Either a camera or an image source is required"})
			return
		}

		result, err := h.pool.Process(ctx, processor.RecognitionJob{
			ProfileID:           req.ProfileID,
			Camera:              req.Camera,
			ConfidenceThreshold: req.ConfidenceThreshold,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondRecognition(c, result)
		return
	}

	source, err := imagesource.Pick(req.ImageData, req.ImagePath, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.faceService.RecognizeFace(ctx, services.RecognizeRequest{
		ProfileID:           req.ProfileID,
		Camera:              req.Camera,
		Source:              source,
		ConfidenceThreshold: req.ConfidenceThreshold,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondRecognition(c, result)
}

func respondRecognition(c *gin.Context, result *processor.Result) {
	c.JSON(http.StatusOK, gin.H{
		"faces_detected":  result.FacesDetected,
		"identifications": result.Identifications,
		"outcome":         result.Outcome,
	})
}

// ListPersons returns the persons of a group
func (h *APIHandler) ListPersons(c *gin.Context) {
	persons, err := h.faceService.ListPersons(c.Request.Context(), services.ListPersonsRequest{
		ProfileID: c.Query("profile_id"),
		GroupID:   c.Query("group_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, persons)
}

// CreatePerson creates a person in a group
func (h *APIHandler) CreatePerson(c *gin.Context) {
	var req createPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid person data: %v", err)})
		return
	}

	person, err := h.faceService.CreatePerson(c.Request.Context(), services.CreatePersonRequest{
		ProfileID: req.ProfileID,
		GroupID:   req.GroupID,
		Name:      req.Name,
		UserData:  req.UserData,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, person)
}

// UploadPersonImage adds a face image to a person
func (h *APIHandler) UploadPersonImage(c *gin.Context) {
	var req personImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	face, err := h.faceService.UploadPersonImage(c.Request.Context(), services.UploadImageRequest{
		ProfileID:      req.ProfileID,
		GroupID:        req.GroupID,
		PersonID:       c.Param("personId"),
		ImageData:      req.ImageData,
		ImagePath:      req.ImagePath,
		ImageURL:       req.ImageURL,
		DetectionModel: req.DetectionModel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, face)
}

// TrainPerson adds a face image to a person as training input
func (h *APIHandler) TrainPerson(c *gin.Context) {
	var req personImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	face, err := h.faceService.TrainPerson(c.Request.Context(), services.TrainPersonRequest{
		ProfileID:      req.ProfileID,
		GroupID:        req.GroupID,
		PersonID:       c.Param("personId"),
		ImageData:      req.ImageData,
		ImagePath:      req.ImagePath,
		ImageURL:       req.ImageURL,
		DetectionModel: req.DetectionModel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, face)
}

// ListGroups returns all person groups of a profile
func (h *APIHandler) ListGroups(c *gin.Context) {
	entry, err := h.registry.Get(c.Query("profile_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groups, err := entry.Client.ListPersonGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// CreateGroup creates a person group
func (h *APIHandler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid group data: %v", err)})
		return
	}

	err := h.faceService.CreatePersonGroup(c.Request.Context(), services.CreateGroupRequest{
		ProfileID:        req.ProfileID,
		GroupID:          req.GroupID,
		Name:             req.Name,
		UserData:         req.UserData,
		RecognitionModel: req.RecognitionModel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Person group created successfully", "person_group_id": req.GroupID})
}

// TrainGroup starts group training and waits for it to finish
func (h *APIHandler) TrainGroup(c *gin.Context) {
	err := h.faceService.TrainGroup(c.Request.Context(), services.TrainGroupRequest{
		ProfileID: c.Query("profile_id"),
		GroupID:   c.Param("groupId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Training completed successfully"})
}

// GetTrainingStatus returns the training state of a group
func (h *APIHandler) GetTrainingStatus(c *gin.Context) {
	status, err := h.faceService.GetTrainingStatus(c.Request.Context(), services.StatusRequest{
		ProfileID: c.Query("profile_id"),
		GroupID:   c.Param("groupId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListEvents returns a page of the outcome journal
func (h *APIHandler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var (
		rows  []models.ServiceEvent
		total int64
		err   error
	)
	if action := c.Query("action"); action != "" {
		rows, total, err = h.journal.GetEventsByAction(action, pageSize, offset)
	} else {
		rows, total, err = h.journal.GetEvents(pageSize, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to fetch events: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": rows,
		"pagination": gin.H{
			"page":     page,
			"pageSize": pageSize,
			"total":    total,
		},
	})
}
