package processor

import (
	"context"

	"azure-face-go/internal/integrations/azureface"

	log "github.com/sirupsen/logrus"
)

// Outcome tags for recognition passes that end without an identification.
// They are ordinary results, not failures.
const (
	OutcomeNoFaceDetected = "no_face_detected"
	OutcomeMultipleFaces  = "multiple_faces"
)

// FaceAPI is the slice of the Azure Face client the workflow needs.
type FaceAPI interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]azureface.DetectedFace, error)
	IdentifyFaces(ctx context.Context, faceIDs []string, personGroupID string, maxCandidates int, confidenceThreshold float64) ([]azureface.IdentifyResult, error)
}

// RankedCandidate is one person match with its confidence.
type RankedCandidate struct {
	PersonID   string  `json:"person_id"`
	Confidence float64 `json:"confidence"`
}

// Identification pairs one detected face with its ranked person candidates.
type Identification struct {
	FaceID         string                    `json:"face_id"`
	FaceAttributes *azureface.FaceAttributes `json:"face_attributes,omitempty"`
	Candidates     []RankedCandidate         `json:"candidates"`
}

// Result is the outcome of one recognition pass over an image.
type Result struct {
	FacesDetected   int
	Identifications []Identification
	Outcome         string // empty after an identification, otherwise an outcome tag
}

// Options control one recognition pass.
type Options struct {
	PersonGroupID       string
	MaxCandidates       int
	ConfidenceThreshold float64
}

// Recognizer runs the detect-then-identify workflow against a face API.
type Recognizer struct {
	api FaceAPI
}

// NewRecognizer creates a recognizer on top of the given API.
func NewRecognizer(api FaceAPI) *Recognizer {
	return &Recognizer{api: api}
}

// Recognize detects faces in the image and identifies them against the person
// group when exactly one face was found. Zero or multiple faces end the pass
// early with a tagged result; identify is never called for them. API failures
// are returned unchanged.
func (r *Recognizer) Recognize(ctx context.Context, imageData []byte, opts Options) (*Result, error) {
	faces, err := r.api.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}

	if len(faces) == 0 {
		log.Warn("No faces detected in image")
		return &Result{
			FacesDetected:   0,
			Identifications: []Identification{},
			Outcome:         OutcomeNoFaceDetected,
		}, nil
	}

	if len(faces) > 1 {
		log.Warnf("Multiple faces detected in image (%d)", len(faces))
		return &Result{
			FacesDetected:   len(faces),
			Identifications: []Identification{},
			Outcome:         OutcomeMultipleFaces,
		}, nil
	}

	face := faces[0]
	maxCandidates := opts.MaxCandidates
	if maxCandidates < 1 {
		maxCandidates = 1
	}

	identifications, err := r.api.IdentifyFaces(ctx, []string{face.FaceID},
		opts.PersonGroupID, maxCandidates, opts.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	results := make([]Identification, 0, len(identifications))
	for _, identification := range identifications {
		entry := Identification{
			FaceID:     identification.FaceID,
			Candidates: make([]RankedCandidate, 0, len(identification.Candidates)),
		}
		if identification.FaceID == face.FaceID {
			entry.FaceAttributes = face.FaceAttributes
		}
		for _, candidate := range identification.Candidates {
			entry.Candidates = append(entry.Candidates, RankedCandidate{
				PersonID:   candidate.PersonID,
				Confidence: candidate.Confidence,
			})
		}
		results = append(results, entry)
	}

	return &Result{
		FacesDetected:   len(faces),
		Identifications: results,
	}, nil
}
