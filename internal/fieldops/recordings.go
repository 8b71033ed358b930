package fieldops

import (
	"context"
	"errors"
	"strings"
)

// RecordingInput carries a transcript produced on the device.
type RecordingInput struct {
	Transcript      string `json:"transcript"`
	DurationSeconds *int   `json:"duration_seconds"`
}

func errRecordingNotFound() error { return newError(ErrNotFound, "recording not found") }

// CreateRecording stores a transcript for the user.
func (s *Service) CreateRecording(ctx context.Context, userID string, in RecordingInput) (Recording, error) {
	if in.DurationSeconds != nil && *in.DurationSeconds < 0 {
		return Recording{}, invalid("duration_seconds cannot be negative")
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		return Recording{}, err
	}
	rec := &Recording{
		UserID:          userID,
		Transcript:      strings.TrimSpace(in.Transcript),
		DurationSeconds: in.DurationSeconds,
		CreatedAt:       s.now(),
	}
	if err := s.store.Recordings().Create(ctx, rec); err != nil {
		return Recording{}, err
	}
	return *rec, nil
}

// ListRecordings returns the user's transcripts, newest first.
func (s *Service) ListRecordings(ctx context.Context, userID string) ([]Recording, error) {
	list, err := s.store.Recordings().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Recording{}
	}
	return list, nil
}

func (s *Service) GetRecording(ctx context.Context, userID, id string) (Recording, error) {
	rec, err := s.store.Recordings().Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return Recording{}, errRecordingNotFound()
	}
	if err != nil {
		return Recording{}, err
	}
	return *rec, nil
}

func (s *Service) DeleteRecording(ctx context.Context, userID, id string) error {
	if err := s.store.Recordings().Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errRecordingNotFound()
		}
		return err
	}
	return nil
}
