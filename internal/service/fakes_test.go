package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/remote"
	"medexam/intake-portal/internal/repository"
	"medexam/intake-portal/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRecordService records every call and lets tests script failures.
type fakeRecordService struct {
	mu sync.Mutex

	createCalls  []remote.CreateRequest
	uploadCalls  []remote.UploadRequest
	deleteCalls  []string
	confirmCalls []string

	createErr  error
	uploadErr  error
	deleteErr  error
	confirmErr error

	// confirmFailures fails the first N confirm calls, then succeeds.
	confirmFailures int

	// createBlock, when set, holds CreateApplication until released.
	createBlock chan struct{}

	nextRecordID int
	nextFileID   int
}

func newFakeRecordService() *fakeRecordService {
	return &fakeRecordService{}
}

func (f *fakeRecordService) CreateApplication(ctx context.Context, req remote.CreateRequest) (string, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, req)
	block := f.createBlock
	err := f.createErr
	f.nextRecordID++
	id := fmt.Sprintf("rec-%d", f.nextRecordID)
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (f *fakeRecordService) ConfirmApplication(ctx context.Context, recordID string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls = append(f.confirmCalls, recordID)
	if f.confirmFailures > 0 {
		f.confirmFailures--
		if f.confirmErr != nil {
			return f.confirmErr
		}
		return errors.New("confirm failed")
	}
	return f.confirmErr
}

func (f *fakeRecordService) UploadAttachment(ctx context.Context, req remote.UploadRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls = append(f.uploadCalls, req)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.nextFileID++
	return fmt.Sprintf("file-%d", f.nextFileID), nil
}

func (f *fakeRecordService) DeleteAttachment(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, fileID)
	return f.deleteErr
}

func (f *fakeRecordService) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createCalls)
}

func (f *fakeRecordService) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploadCalls)
}

func errAsConflict() error { return remote.ErrConflict }

// fakePreviews is an in-memory PreviewStorage.
type fakePreviews struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakePreviews() *fakePreviews {
	return &fakePreviews{objects: make(map[string][]byte)}
}

func (f *fakePreviews) PutPreview(ctx context.Context, key, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = data
	return "https://previews.local/" + key, nil
}

func (f *fakePreviews) PreviewURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://previews.local/" + key, nil
}

func (f *fakePreviews) DeletePreview(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeSubmissionRepo keeps records in memory.
type fakeSubmissionRepo struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, record *domain.SubmissionRecord) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = primitive.NewObjectID()
	f.records = append(f.records, *record)
	return record.ID, nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SubmissionRecord, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeSubmissionRepo) GetByExamOccurrence(ctx context.Context, examOccurrenceID string) ([]domain.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SubmissionRecord(nil), f.records...), nil
}

func (f *fakeSubmissionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// passValidator accepts everything; failValidator rejects everything.
type passValidator struct{}

func (passValidator) Validate(domain.ExamVariant, domain.ApplicationForm) validation.FieldErrors {
	return nil
}
func (passValidator) ValidateEmail(email string) bool { return email != "" }

type failValidator struct{}

func (failValidator) Validate(domain.ExamVariant, domain.ApplicationForm) validation.FieldErrors {
	return validation.FieldErrors{"phone": "phone number does not look valid"}
}
func (failValidator) ValidateEmail(string) bool { return false }
