package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netweather/weathermap/internal/wmerrors"
)

func TestWriteErrorHTTPErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, wmerrors.Validation("node list: %s", "too long"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Error != wmerrors.KindValidation {
		t.Fatalf("got kind %q, want %q", body.Error, wmerrors.KindValidation)
	}
	if body.Code != http.StatusBadRequest {
		t.Fatalf("got code %d, want %d", body.Code, http.StatusBadRequest)
	}
}

func TestWriteErrorFoldsUnknownErrorsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, errors.New("some internal detail that should not leak"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Error != wmerrors.KindInternal {
		t.Fatalf("got kind %q, want %q", body.Error, wmerrors.KindInternal)
	}
	if body.Description == "some internal detail that should not leak" {
		t.Fatalf("internal error cause leaked into response body: %q", body.Description)
	}
}
