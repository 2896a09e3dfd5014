package azureface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"azure-face-go/config"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds each API request when the config gives none.
	DefaultTimeout = 10 * time.Second

	// DefaultConfidenceThreshold is the identify cutoff used when a caller
	// does not supply one.
	DefaultConfidenceThreshold = 0.7

	DefaultDetectionModel   = "detection_03"
	DefaultRecognitionModel = "recognition_04"

	// facePathPrefix is the versioned base path of the Face API.
	facePathPrefix = "/face/v1.0"

	// detectAttributes is the attribute set requested on every detect call.
	detectAttributes = "age,gender,emotion,facialHair,glasses,smile,makeup,accessories,blur,exposure,noise"
)

// personGroupIDPattern constrains person group ids before they are put into
// a request path.
var personGroupIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Client talks to the Azure Face API for a single subscription.
type Client struct {
	endpoint         string // regional endpoint without trailing slash
	apiKey           string
	detectionModel   string
	recognitionModel string
	httpClient       *http.Client
}

// NewClient creates a client for one configured profile. The profile may name
// a region instead of an endpoint; the region is resolved here.
func NewClient(profile config.AzureProfile, cfg config.AzureConfig) (*Client, error) {
	endpoint := profile.Endpoint
	if endpoint == "" {
		resolved, err := EndpointForRegion(profile.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve endpoint for profile %q: %w", profile.ID, err)
		}
		endpoint = resolved
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	detectionModel := cfg.DetectionModel
	if detectionModel == "" {
		detectionModel = DefaultDetectionModel
	}
	recognitionModel := cfg.RecognitionModel
	if recognitionModel == "" {
		recognitionModel = DefaultRecognitionModel
	}

	return &Client{
		endpoint:         strings.TrimRight(endpoint, "/"),
		apiKey:           profile.APIKey,
		detectionModel:   detectionModel,
		recognitionModel: recognitionModel,
		httpClient:       &http.Client{Timeout: timeout},
	}, nil
}

// Endpoint returns the resolved API endpoint of this client.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// apiRequest describes one call against the Face API.
type apiRequest struct {
	method string
	path   string // below /face/v1.0, with leading slash
	query  url.Values
	json   interface{} // JSON payload, mutually exclusive with octet
	octet  []byte      // raw image payload
}

// do executes a single API request and decodes the response into out.
// It performs exactly one attempt; retrying is left to the caller. Every
// failure is returned as *Error so callers can branch on its kind.
func (c *Client) do(ctx context.Context, req apiRequest, out interface{}) error {
	reqURL := c.endpoint + facePathPrefix + req.path
	if len(req.query) > 0 {
		reqURL += "?" + req.query.Encode()
	}

	var body io.Reader
	var contentType string
	switch {
	case req.json != nil:
		payload, err := json.Marshal(req.json)
		if err != nil {
			return newError(KindAPIError, 0, fmt.Sprintf("API error: failed to encode request body: %v", err))
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.octet != nil:
		body = bytes.NewReader(req.octet)
		contentType = "application/octet-stream"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, reqURL, body)
	if err != nil {
		return newError(KindAPIError, 0, fmt.Sprintf("Network error: %v", err))
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Errorf("Network error calling Face API: %v", err)
		return newError(KindAPIError, 0, fmt.Sprintf("Network error: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("Failed to read Face API response: %v", err)
		return newError(KindAPIError, 0, fmt.Sprintf("Network error: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return newError(KindAuthenticationFailed, resp.StatusCode,
			"Authentication failed. Please check your API key.")
	case resp.StatusCode == http.StatusTooManyRequests:
		return newError(KindQuotaExceeded, resp.StatusCode,
			"API quota exceeded. Please wait before retrying.")
	case resp.StatusCode >= 400:
		message := string(respBody)
		var wireErr errorResponse
		if err := json.Unmarshal(respBody, &wireErr); err == nil && wireErr.Error.Message != "" {
			message = wireErr.Error.Message
		}
		log.Errorf("Face API error: %s (status: %d)", message, resp.StatusCode)
		return newError(KindAPIError, resp.StatusCode, fmt.Sprintf("API error: %s", message))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return newError(KindAPIError, resp.StatusCode,
				fmt.Sprintf("API error: failed to decode response: %v", err))
		}
	}

	return nil
}

// DetectFaces detects faces in an image and returns them with face ids and
// the standard attribute set. The image is validated before any request is
// made.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error) {
	if err := ValidateImage(imageData); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("detectionModel", c.detectionModel)
	query.Set("returnFaceId", "true")
	query.Set("returnFaceLandmarks", "false")
	query.Set("returnFaceAttributes", detectAttributes)

	var faces []DetectedFace
	if err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/detect",
		query:  query,
		octet:  imageData,
	}, &faces); err != nil {
		return nil, err
	}

	log.Debugf("Detected %d faces", len(faces))
	return faces, nil
}

// IdentifyFaces matches detected face ids against the persons of a group and
// returns ranked candidates per face.
func (c *Client) IdentifyFaces(ctx context.Context, faceIDs []string, personGroupID string, maxCandidates int, confidenceThreshold float64) ([]IdentifyResult, error) {
	if len(faceIDs) == 0 {
		return nil, fmt.Errorf("identify requires at least one face id")
	}
	if maxCandidates < 1 {
		return nil, fmt.Errorf("maxCandidates must be at least 1")
	}
	if confidenceThreshold < 0 || confidenceThreshold > 1 {
		return nil, fmt.Errorf("confidenceThreshold must be between 0 and 1")
	}

	var results []IdentifyResult
	if err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/identify",
		json: identifyRequest{
			FaceIDs:                    faceIDs,
			PersonGroupID:              personGroupID,
			MaxNumOfCandidatesReturned: maxCandidates,
			ConfidenceThreshold:        confidenceThreshold,
		},
	}, &results); err != nil {
		return nil, err
	}

	return results, nil
}

// CreatePersonGroup creates a person group. Creating a group that already
// exists fails with an API error; the remote service treats the id as unique.
func (c *Client) CreatePersonGroup(ctx context.Context, personGroupID, name, userData, recognitionModel string) error {
	if !personGroupIDPattern.MatchString(personGroupID) {
		return fmt.Errorf("invalid person group id %q", personGroupID)
	}
	if name == "" {
		return fmt.Errorf("person group name must not be empty")
	}
	if recognitionModel == "" {
		recognitionModel = c.recognitionModel
	}

	return c.do(ctx, apiRequest{
		method: http.MethodPut,
		path:   "/persongroups/" + personGroupID,
		json: createPersonGroupRequest{
			Name:             name,
			RecognitionModel: recognitionModel,
			UserData:         userData,
		},
	}, nil)
}

// TrainPersonGroup starts an asynchronous training run for a group.
func (c *Client) TrainPersonGroup(ctx context.Context, personGroupID string) error {
	return c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/persongroups/" + personGroupID + "/train",
	}, nil)
}

// GetTrainingStatus reads the current training state of a group.
func (c *Client) GetTrainingStatus(ctx context.Context, personGroupID string) (*TrainingStatus, error) {
	var status TrainingStatus
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/persongroups/" + personGroupID + "/training",
	}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreatePerson creates a person inside a group and returns its person id.
func (c *Client) CreatePerson(ctx context.Context, personGroupID, name, userData string) (*Person, error) {
	if name == "" {
		return nil, fmt.Errorf("person name must not be empty")
	}

	var person Person
	if err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/persongroups/" + personGroupID + "/persons",
		json: createPersonRequest{
			Name:     name,
			UserData: userData,
		},
	}, &person); err != nil {
		return nil, err
	}

	return &person, nil
}

// AddPersonFace attaches a reference image to a person. The image is
// validated before any request is made. An empty detectionModel falls back
// to the configured default.
func (c *Client) AddPersonFace(ctx context.Context, personGroupID, personID string, imageData []byte, detectionModel string) (*PersistedFace, error) {
	if err := ValidateImage(imageData); err != nil {
		return nil, err
	}
	if detectionModel == "" {
		detectionModel = c.detectionModel
	}

	query := url.Values{}
	query.Set("detectionModel", detectionModel)

	var face PersistedFace
	if err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/persongroups/" + personGroupID + "/persons/" + personID + "/persistedFaces",
		query:  query,
		octet:  imageData,
	}, &face); err != nil {
		return nil, err
	}

	return &face, nil
}

// ListPersonGroups lists all person groups of the subscription.
func (c *Client) ListPersonGroups(ctx context.Context) ([]PersonGroup, error) {
	var groups []PersonGroup
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/persongroups",
	}, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetPersonGroup reads a single person group.
func (c *Client) GetPersonGroup(ctx context.Context, personGroupID string) (*PersonGroup, error) {
	var group PersonGroup
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/persongroups/" + personGroupID,
	}, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListPersons lists the persons of a group. The remote service is the only
// source of this data; nothing is cached locally.
func (c *Client) ListPersons(ctx context.Context, personGroupID string) ([]Person, error) {
	var persons []Person
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/persongroups/" + personGroupID + "/persons",
	}, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

// GetPerson reads a single person of a group.
func (c *Client) GetPerson(ctx context.Context, personGroupID, personID string) (*Person, error) {
	var person Person
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/persongroups/" + personGroupID + "/persons/" + personID,
	}, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// TestConnection probes the API with a cheap list call. Any API failure,
// including bad credentials or quota limits, collapses to false.
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.ListPersonGroups(ctx); err != nil {
		log.Debugf("Face API connection test failed: %v", err)
		return false
	}
	return true
}
