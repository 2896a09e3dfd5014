package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/core/events"
	"azure-face-go/internal/core/imagesource"
	"azure-face-go/internal/core/models"
	"azure-face-go/internal/core/processor"
	"azure-face-go/internal/core/registry"
	"azure-face-go/internal/db/repository"
	"azure-face-go/internal/integrations/azureface"
	"azure-face-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// FaceService is the command layer. Every operation resolves its profile,
// executes against the remote service, publishes an outcome event and writes
// a journal row. Failure paths publish and journal before the error is
// returned, so outcomes stay observable regardless of the caller.
type FaceService struct {
	registry *registry.Registry
	resolver *imagesource.Resolver
	notifier Notifier
	journal  repository.EventRepository
	cfg      *config.Config
}

// NewFaceService creates the command layer. The journal repository may be nil
// when no database is configured.
func NewFaceService(reg *registry.Registry, resolver *imagesource.Resolver, notifier Notifier, journal repository.EventRepository, cfg *config.Config) *FaceService {
	return &FaceService{
		registry: reg,
		resolver: resolver,
		notifier: notifier,
		journal:  journal,
		cfg:      cfg,
	}
}

// RecognizeRequest describes one recognition command.
type RecognizeRequest struct {
	ProfileID           string
	Camera              string             // camera name; used when Source is nil
	Source              imagesource.Source // explicit image source, overrides Camera
	ConfidenceThreshold float64            // 0 uses the configured default
}

// TrainPersonRequest adds a face image to an existing person.
type TrainPersonRequest struct {
	ProfileID      string
	GroupID        string // empty uses the profile's person group
	PersonID       string
	ImageData      string // base64
	ImagePath      string
	ImageURL       string
	DetectionModel string
}

// CreateGroupRequest creates a person group.
type CreateGroupRequest struct {
	ProfileID        string
	GroupID          string
	Name             string
	UserData         string
	RecognitionModel string
}

// TrainGroupRequest starts group training and waits for completion.
type TrainGroupRequest struct {
	ProfileID string
	GroupID   string
}

// CreatePersonRequest creates a person in a group.
type CreatePersonRequest struct {
	ProfileID string
	GroupID   string
	Name      string
	UserData  string
}

// UploadImageRequest adds a face image to a person.
type UploadImageRequest struct {
	ProfileID      string
	GroupID        string
	PersonID       string
	ImageData      string // base64
	ImagePath      string
	ImageURL       string
	DetectionModel string
}

// StatusRequest queries the training status of a group.
type StatusRequest struct {
	ProfileID string
	GroupID   string
}

// ListPersonsRequest lists the persons of a group.
type ListPersonsRequest struct {
	ProfileID string
	GroupID   string
}

// RecognizeFace acquires an image, runs the detect-identify workflow and
// reports the outcome. Zero and multiple detected faces are normal results.
func (s *FaceService) RecognizeFace(ctx context.Context, req RecognizeRequest) (*processor.Result, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, result *processor.Result, opErr error) {
		payload := events.RecognitionResult{
			CameraEntity:    req.Camera,
			Identifications: []processor.Identification{},
		}
		outcome := ""
		if result != nil {
			payload.FacesDetected = result.FacesDetected
			payload.Identifications = result.Identifications
			outcome = result.Outcome
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypeRecognitionResult, profileID, payload)
		if opErr == nil {
			s.notifier.NotifyRecognition(req.Camera, outcome, envelope, payload)
		} else {
			s.notifier.NotifyEvent(envelope)
		}
		s.journalOutcome(envelope, models.ActionRecognizeFace, groupID, req.Camera, started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, "", nil, err)
		return nil, err
	}

	source := req.Source
	if source == nil {
		if req.Camera == "" {
			err := fmt.Errorf("no image source provided: set a camera or an explicit source")
			report(entry.Profile.ID, entry.PersonGroupID(), nil, err)
			return nil, err
		}
		source = imagesource.Camera(req.Camera)
	}

	imageData, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		err = fmt.Errorf("failed to acquire image: %w", err)
		report(entry.Profile.ID, entry.PersonGroupID(), nil, err)
		return nil, err
	}

	threshold := req.ConfidenceThreshold
	if threshold <= 0 {
		threshold = s.cfg.Azure.ConfidenceThreshold
	}

	recognizer := processor.NewRecognizer(entry.Client)
	result, err := recognizer.Recognize(ctx, imageData, processor.Options{
		PersonGroupID:       entry.PersonGroupID(),
		MaxCandidates:       s.cfg.Azure.MaxCandidates,
		ConfidenceThreshold: threshold,
	})
	if err != nil {
		report(entry.Profile.ID, entry.PersonGroupID(), nil, err)
		return nil, err
	}

	report(entry.Profile.ID, entry.PersonGroupID(), result, nil)
	return result, nil
}

// RunRecognition lets the worker pool dispatch recognition commands.
func (s *FaceService) RunRecognition(ctx context.Context, job processor.RecognitionJob) (*processor.Result, error) {
	return s.RecognizeFace(ctx, RecognizeRequest{
		ProfileID:           job.ProfileID,
		Camera:              job.Camera,
		ConfidenceThreshold: job.ConfidenceThreshold,
	})
}

// TrainPerson adds a face image to a person and reports it as training input.
func (s *FaceService) TrainPerson(ctx context.Context, req TrainPersonRequest) (*azureface.PersistedFace, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, face *azureface.PersistedFace, opErr error) {
		payload := events.TrainingResult{
			PersonID: req.PersonID,
			Action:   events.ActionFaceAdded,
		}
		if face != nil {
			payload.PersistedFaceID = face.PersistedFaceID
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypeTrainingResult, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionTrainPerson, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, nil, err)
		return nil, err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, nil, err)
		return nil, err
	}

	imageData, err := s.acquireImage(ctx, req.ImageData, req.ImagePath, req.ImageURL)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	face, err := entry.Client.AddPersonFace(ctx, groupID, req.PersonID, imageData, req.DetectionModel)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	log.Infof("Added face %s to person %s in group %s", face.PersistedFaceID, req.PersonID, groupID)
	report(entry.Profile.ID, groupID, face, nil)
	return face, nil
}

// CreatePersonGroup creates a person group on the remote service.
func (s *FaceService) CreatePersonGroup(ctx context.Context, req CreateGroupRequest) error {
	started := timezone.Now()

	report := func(profileID string, opErr error) {
		payload := events.GroupManagement{
			PersonGroupID: req.GroupID,
			Action:        events.ActionGroupCreated,
			Name:          req.Name,
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypeGroupManagement, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionCreatePersonGroup, req.GroupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, err)
		return err
	}

	if err := entry.Client.CreatePersonGroup(ctx, req.GroupID, req.Name, req.UserData, req.RecognitionModel); err != nil {
		report(entry.Profile.ID, err)
		return err
	}

	log.Infof("Created person group %s (%s)", req.GroupID, req.Name)
	report(entry.Profile.ID, nil)
	return nil
}

// TrainGroup starts training for a group and waits for it to finish.
func (s *FaceService) TrainGroup(ctx context.Context, req TrainGroupRequest) error {
	started := timezone.Now()

	report := func(profileID, groupID string, opErr error) {
		payload := events.TrainingResult{
			PersonGroupID: groupID,
			Action:        events.ActionGroupTrained,
			Status:        "succeeded",
		}
		if opErr != nil {
			payload.Status = "failed"
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypeTrainingResult, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionTrainGroup, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, err)
		return err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, err)
		return err
	}

	trainer := azureface.NewTrainer(entry.Client,
		time.Duration(s.cfg.Azure.PollIntervalSeconds)*time.Second,
		time.Duration(s.cfg.Azure.TrainingTimeoutSeconds)*time.Second)

	if err := trainer.TrainAndWait(ctx, groupID); err != nil {
		report(entry.Profile.ID, groupID, err)
		return err
	}

	log.Infof("Training of person group %s completed", groupID)
	report(entry.Profile.ID, groupID, nil)
	return nil
}

// CreatePerson creates a person in a group.
func (s *FaceService) CreatePerson(ctx context.Context, req CreatePersonRequest) (*azureface.Person, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, person *azureface.Person, opErr error) {
		payload := events.PersonManagement{
			PersonGroupID: groupID,
			Name:          req.Name,
			Action:        events.ActionPersonCreated,
		}
		if person != nil {
			payload.PersonID = person.PersonID
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypePersonManagement, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionCreatePerson, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, nil, err)
		return nil, err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, nil, err)
		return nil, err
	}

	person, err := entry.Client.CreatePerson(ctx, groupID, req.Name, req.UserData)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	log.Infof("Created person %s (%s) in group %s", person.PersonID, req.Name, groupID)
	report(entry.Profile.ID, groupID, person, nil)
	return person, nil
}

// UploadPersonImage adds a face image to a person.
func (s *FaceService) UploadPersonImage(ctx context.Context, req UploadImageRequest) (*azureface.PersistedFace, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, face *azureface.PersistedFace, opErr error) {
		payload := events.PersonManagement{
			PersonGroupID: groupID,
			PersonID:      req.PersonID,
			Action:        events.ActionImageUploaded,
		}
		if face != nil {
			payload.PersistedFaceID = face.PersistedFaceID
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypePersonManagement, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionUploadPersonImage, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, nil, err)
		return nil, err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, nil, err)
		return nil, err
	}

	imageData, err := s.acquireImage(ctx, req.ImageData, req.ImagePath, req.ImageURL)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	face, err := entry.Client.AddPersonFace(ctx, groupID, req.PersonID, imageData, req.DetectionModel)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	log.Infof("Uploaded image for person %s in group %s", req.PersonID, groupID)
	report(entry.Profile.ID, groupID, face, nil)
	return face, nil
}

// GetTrainingStatus queries the training state of a group.
func (s *FaceService) GetTrainingStatus(ctx context.Context, req StatusRequest) (*azureface.TrainingStatus, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, status *azureface.TrainingStatus, opErr error) {
		payload := events.TrainingStatus{
			PersonGroupID: groupID,
		}
		if status != nil {
			payload.Status = string(status.Status)
			payload.CreatedTime = status.CreatedTime
			payload.LastActionTime = status.LastActionTime
			payload.LastSuccessfulTrainingTime = status.LastSuccessfulTrainingTime
			payload.Message = status.Message
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypeTrainingStatus, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionTrainingStatus, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, nil, err)
		return nil, err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, nil, err)
		return nil, err
	}

	status, err := entry.Client.GetTrainingStatus(ctx, groupID)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	report(entry.Profile.ID, groupID, status, nil)
	return status, nil
}

// ListPersons lists the persons of a group.
func (s *FaceService) ListPersons(ctx context.Context, req ListPersonsRequest) ([]azureface.Person, error) {
	started := timezone.Now()

	report := func(profileID, groupID string, persons []azureface.Person, opErr error) {
		if persons == nil {
			persons = []azureface.Person{}
		}
		payload := events.PersonsList{
			PersonGroupID: groupID,
			Persons:       persons,
		}
		if opErr != nil {
			payload.Error = opErr.Error()
		}

		envelope := events.NewEnvelope(events.TypePersonsList, profileID, payload)
		s.notifier.NotifyEvent(envelope)
		s.journalOutcome(envelope, models.ActionListPersons, groupID, "", started, opErr)
	}

	entry, err := s.registry.Get(req.ProfileID)
	if err != nil {
		report(req.ProfileID, req.GroupID, nil, err)
		return nil, err
	}

	groupID, err := s.resolveGroup(entry, req.GroupID)
	if err != nil {
		report(entry.Profile.ID, req.GroupID, nil, err)
		return nil, err
	}

	persons, err := entry.Client.ListPersons(ctx, groupID)
	if err != nil {
		report(entry.Profile.ID, groupID, nil, err)
		return nil, err
	}

	report(entry.Profile.ID, groupID, persons, nil)
	return persons, nil
}

// TestConnections checks every configured profile against the remote service.
// It returns the per-profile reachability keyed by profile id.
func (s *FaceService) TestConnections(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	for _, entry := range s.registry.List() {
		ok := entry.Client.TestConnection(ctx)
		results[entry.Profile.ID] = ok
		if ok {
			log.Infof("Azure Face profile %s is reachable", entry.Profile.ID)
		} else {
			log.Warnf("Azure Face profile %s is not reachable", entry.Profile.ID)
		}
	}
	return results
}

// resolveGroup picks the person group for an operation.
func (s *FaceService) resolveGroup(entry *registry.Entry, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if entry.PersonGroupID() != "" {
		return entry.PersonGroupID(), nil
	}
	return "", fmt.Errorf("no person group configured for profile %s", entry.Profile.ID)
}

// acquireImage resolves the image bytes from the request's source fields.
func (s *FaceService) acquireImage(ctx context.Context, imageData, imagePath, imageURL string) ([]byte, error) {
	source, err := imagesource.Pick(imageData, imagePath, imageURL)
	if err != nil {
		return nil, err
	}
	data, err := s.resolver.Resolve(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire image: %w", err)
	}
	return data, nil
}

// journalOutcome writes one journal row; failures are logged, never returned.
func (s *FaceService) journalOutcome(envelope events.Envelope, action, groupID, camera string, started time.Time, opErr error) {
	if s.journal == nil {
		return
	}

	event := &models.ServiceEvent{
		EventID:    envelope.EventID,
		Action:     action,
		ProfileID:  envelope.ProfileID,
		GroupID:    groupID,
		Camera:     camera,
		Status:     models.StatusOK,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if opErr != nil {
		event.Status = models.StatusError
		event.ErrorKind = string(azureface.KindOf(opErr))
		event.Message = opErr.Error()
	}
	if payload, err := json.Marshal(envelope.Payload); err == nil {
		event.Payload = datatypes.JSON(payload)
	}

	if err := s.journal.SaveEvent(event); err != nil {
		log.Errorf("Failed to journal %s outcome: %v", action, err)
	}
}
