package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"cards": 3})

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body.Data["cards"] != 3 {
		t.Errorf("Unexpected data %v", body.Data)
	}
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, error)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"not found", NotFound, http.StatusNotFound},
		{"unprocessable", UnprocessableEntity, http.StatusUnprocessableEntity},
		{"internal", InternalError, http.StatusInternalServerError},
		{"unavailable", ServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, errors.New("deck not found"))

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if body.Code != tt.status || body.Message != "deck not found" || body.Error != http.StatusText(tt.status) {
				t.Errorf("Unexpected body %+v", body)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("Expected empty 204, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}
