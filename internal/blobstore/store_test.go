package blobstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/capture"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recordings.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return s, path
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	rec := &capture.Recording{Data: []byte("RIFF....WAVE"), Duration: 42 * time.Second, MIMEType: "audio/wav", Chunks: 42}
	if err := s.Save(ctx, "s-1", rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !bytes.Equal(got.Data, rec.Data) || got.Duration != rec.Duration || got.MIMEType != "audio/wav" || got.Chunks != 42 {
		t.Fatalf("Get() = %+v", got)
	}

	if err := s.Delete(ctx, "s-1"); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get(ctx, "s-1"); err != nil || got != nil {
		t.Errorf("Get() after delete = %+v, %v; want nil, nil", got, err)
	}
	if err := s.Delete(ctx, "s-1"); err != nil {
		t.Errorf("deleting a missing recording = %v", err)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	s, _ := openTestStore(t)
	defer s.Close()
	got, err := s.Get(context.Background(), "never-saved")
	if err != nil || got != nil {
		t.Errorf("Get() = %+v, %v; want nil, nil", got, err)
	}
}

func TestSaveReplacesAndSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	_ = s.Save(ctx, "s-1", &capture.Recording{Data: []byte("old"), MIMEType: "audio/wav"})
	if err := s.Save(ctx, "s-1", &capture.Recording{Data: []byte("new"), MIMEType: "video/webm"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "s-1")
	if err != nil || got == nil || string(got.Data) != "new" || got.MIMEType != "video/webm" {
		t.Fatalf("Get() after reopen = %+v, %v", got, err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SessionID != "s-1" || entries[0].Size != 3 {
		t.Errorf("List() = %+v", entries)
	}
}

func TestSaveValidates(t *testing.T) {
	s, _ := openTestStore(t)
	defer s.Close()
	if err := s.Save(context.Background(), "", &capture.Recording{}); !apperrors.IsCode(err, apperrors.InvalidArgument) {
		t.Errorf("empty id = %v, want INVALID_ARGUMENT", err)
	}
	if err := s.Save(context.Background(), "s-1", nil); !apperrors.IsCode(err, apperrors.InvalidArgument) {
		t.Errorf("nil recording = %v, want INVALID_ARGUMENT", err)
	}
}
