package azureface

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TrainingAPI is the slice of the client the trainer needs.
type TrainingAPI interface {
	TrainPersonGroup(ctx context.Context, personGroupID string) error
	GetTrainingStatus(ctx context.Context, personGroupID string) (*TrainingStatus, error)
}

// Trainer starts person group training runs and polls them to completion.
type Trainer struct {
	api          TrainingAPI
	pollInterval time.Duration
	maxWait      time.Duration // zero disables the deadline
}

// NewTrainer creates a trainer. A non-positive poll interval falls back to
// one second; a zero maxWait lets a run poll indefinitely.
func NewTrainer(api TrainingAPI, pollInterval, maxWait time.Duration) *Trainer {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Trainer{
		api:          api,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// TrainAndWait starts a training run and polls its status until it reaches a
// terminal state, the deadline passes, or ctx is cancelled. The status is
// checked once immediately after the start call and then once per interval.
func (t *Trainer) TrainAndWait(ctx context.Context, personGroupID string) error {
	if err := t.api.TrainPersonGroup(ctx, personGroupID); err != nil {
		return err
	}

	var deadline time.Time
	if t.maxWait > 0 {
		deadline = time.Now().Add(t.maxWait)
	}

	for {
		status, err := t.api.GetTrainingStatus(ctx, personGroupID)
		if err != nil {
			return err
		}

		switch status.Status {
		case TrainingSucceeded:
			log.Infof("Training of person group %s succeeded", personGroupID)
			return nil
		case TrainingFailed:
			if status.Message == "" {
				return newError(KindTrainingFailed, 0, "Training failed")
			}
			return newError(KindTrainingFailed, 0, fmt.Sprintf("Training failed: %s", status.Message))
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return newError(KindTrainingTimeout, 0,
				fmt.Sprintf("Training of person group %s did not finish within %s", personGroupID, t.maxWait))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.pollInterval):
		}
	}
}
