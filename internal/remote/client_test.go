package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateApplication(t *testing.T) {
	var gotBody CreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/applications" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "rec-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	id, err := client.CreateApplication(context.Background(), CreateRequest{
		ExamOccurrenceID: "occ-1", FullName: "Jane Doe", Email: "jane@x.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "rec-42" {
		t.Fatalf("id = %q", id)
	}
	if gotBody.Email != "jane@x.com" || gotBody.ExamOccurrenceID != "occ-1" {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestCreateApplicationConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Application already exists for this exam occurrence",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.CreateApplication(context.Background(), CreateRequest{
		ExamOccurrenceID: "occ-1", FullName: "Jane Doe", Email: "jane@x.com",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestConfirmApplicationUsesPatch(t *testing.T) {
	var gotMethod, gotPath string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	err := client.ConfirmApplication(context.Background(), "rec-42", map[string]any{"shouldSubmit": true})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/applications/rec-42" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotPayload["shouldSubmit"] != true {
		t.Fatalf("payload = %v", gotPayload)
	}
}

func TestConfirmApplicationSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "exam occurrence is closed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	err := client.ConfirmApplication(context.Background(), "rec-42", map[string]any{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Message != "exam occurrence is closed" {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestUploadAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attachments/upload/image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for field, want := range map[string]string{
			"examOccurrenceId": "occ-1",
			"entityType":       "application",
			"entityId":         "rec-42",
			"category":         "signature",
			"fileName":         "osce_signature.png",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s = %q, want %q", field, got, want)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "osce_signature.png" {
			t.Errorf("file name = %q", header.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-7"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	fileID, err := client.UploadAttachment(context.Background(), UploadRequest{
		ExamOccurrenceID: "occ-1",
		EntityType:       "application",
		EntityID:         "rec-42",
		Category:         "signature",
		FileName:         "osce_signature.png",
		ContentType:      "image/png",
		Data:             []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if fileID != "file-7" {
		t.Fatalf("file id = %q", fileID)
	}
}

func TestDeleteAttachment(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if err := client.DeleteAttachment(context.Background(), "file-7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/attachments/file-7" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDeleteAttachmentFailureReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if err := client.DeleteAttachment(context.Background(), "file-7"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
