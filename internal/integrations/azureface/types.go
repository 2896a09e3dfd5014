package azureface

import "time"

// TrainingState is the lifecycle state of a person group training run.
type TrainingState string

const (
	TrainingNotStarted TrainingState = "notstarted"
	TrainingRunning    TrainingState = "running"
	TrainingSucceeded  TrainingState = "succeeded"
	TrainingFailed     TrainingState = "failed"
)

// Terminal reports whether the state ends a training run.
func (s TrainingState) Terminal() bool {
	return s == TrainingSucceeded || s == TrainingFailed
}

// FaceRectangle is the bounding box of a detected face
type FaceRectangle struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EmotionScores holds the per-emotion confidence values of a face
type EmotionScores struct {
	Anger     float64 `json:"anger"`
	Contempt  float64 `json:"contempt"`
	Disgust   float64 `json:"disgust"`
	Fear      float64 `json:"fear"`
	Happiness float64 `json:"happiness"`
	Neutral   float64 `json:"neutral"`
	Sadness   float64 `json:"sadness"`
	Surprise  float64 `json:"surprise"`
}

// FacialHair describes detected facial hair coverage
type FacialHair struct {
	Moustache float64 `json:"moustache"`
	Beard     float64 `json:"beard"`
	Sideburns float64 `json:"sideburns"`
}

// Makeup describes detected makeup
type Makeup struct {
	EyeMakeup bool `json:"eyeMakeup"`
	LipMakeup bool `json:"lipMakeup"`
}

// Accessory is a single detected accessory such as glasses or a mask
type Accessory struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Blur describes image blurriness
type Blur struct {
	BlurLevel string  `json:"blurLevel"`
	Value     float64 `json:"value"`
}

// Exposure describes image exposure
type Exposure struct {
	ExposureLevel string  `json:"exposureLevel"`
	Value         float64 `json:"value"`
}

// Noise describes image noise
type Noise struct {
	NoiseLevel string  `json:"noiseLevel"`
	Value      float64 `json:"value"`
}

// FaceAttributes is the attribute set requested on every detect call
type FaceAttributes struct {
	Age         float64        `json:"age,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	Smile       float64        `json:"smile,omitempty"`
	Glasses     string         `json:"glasses,omitempty"`
	FacialHair  *FacialHair    `json:"facialHair,omitempty"`
	Emotion     *EmotionScores `json:"emotion,omitempty"`
	Makeup      *Makeup        `json:"makeup,omitempty"`
	Accessories []Accessory    `json:"accessories,omitempty"`
	Blur        *Blur          `json:"blur,omitempty"`
	Exposure    *Exposure      `json:"exposure,omitempty"`
	Noise       *Noise         `json:"noise,omitempty"`
}

// DetectedFace is one face returned by the detect endpoint
type DetectedFace struct {
	FaceID         string          `json:"faceId"`
	FaceRectangle  FaceRectangle   `json:"faceRectangle"`
	FaceAttributes *FaceAttributes `json:"faceAttributes,omitempty"`
}

// Candidate is one ranked person match for an identified face
type Candidate struct {
	PersonID   string  `json:"personId"`
	Confidence float64 `json:"confidence"`
}

// IdentifyResult pairs a face id with its ranked candidates
type IdentifyResult struct {
	FaceID     string      `json:"faceId"`
	Candidates []Candidate `json:"candidates"`
}

// PersonGroup is a container for persons trained together
type PersonGroup struct {
	PersonGroupID    string `json:"personGroupId"`
	Name             string `json:"name"`
	UserData         string `json:"userData,omitempty"`
	RecognitionModel string `json:"recognitionModel,omitempty"`
}

// Person is a named member of a person group
type Person struct {
	PersonID         string   `json:"personId"`
	Name             string   `json:"name"`
	UserData         string   `json:"userData,omitempty"`
	PersistedFaceIDs []string `json:"persistedFaceIds,omitempty"`
}

// PersistedFace is the stored reference face returned when an image is
// attached to a person
type PersistedFace struct {
	PersistedFaceID string `json:"persistedFaceId"`
}

// TrainingStatus is the training state of a person group
type TrainingStatus struct {
	Status                     TrainingState `json:"status"`
	CreatedTime                time.Time     `json:"createdTime"`
	LastActionTime             *time.Time    `json:"lastActionTime,omitempty"`
	LastSuccessfulTrainingTime *time.Time    `json:"lastSuccessfulTrainingTime,omitempty"`
	Message                    string        `json:"message,omitempty"`
}

// identifyRequest is the JSON body of the identify endpoint
type identifyRequest struct {
	FaceIDs                    []string `json:"faceIds"`
	PersonGroupID              string   `json:"personGroupId"`
	MaxNumOfCandidatesReturned int      `json:"maxNumOfCandidatesReturned"`
	ConfidenceThreshold        float64  `json:"confidenceThreshold"`
}

// createPersonGroupRequest is the JSON body of the person group create endpoint
type createPersonGroupRequest struct {
	Name             string `json:"name"`
	RecognitionModel string `json:"recognitionModel"`
	UserData         string `json:"userData,omitempty"`
}

// createPersonRequest is the JSON body of the person create endpoint
type createPersonRequest struct {
	Name     string `json:"name"`
	UserData string `json:"userData,omitempty"`
}

// errorResponse is the error envelope returned for failed requests
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
