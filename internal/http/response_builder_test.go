package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/core"
)

func TestResponseBuilder_JSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "yes").
		JSON(map[string]int{"removed": 1}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("X-Custom") != "yes" {
		t.Errorf("headers = %v", rec.Header())
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["removed"] != 1 {
		t.Errorf("body = %s (%v)", rec.Body.String(), err)
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Attachment("finance_export.csv", "text/csv; charset=utf-8", []byte("a,b\n")).Write(rec)

	if rec.Header().Get("Content-Disposition") != `attachment; filename="finance_export.csv"` {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "a,b\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestResponseBuilder_EmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		build  *ResponseBuilder
		status int
		msg    string
	}{
		{"bad request", BadRequestError("failed to parse JSON"), http.StatusBadRequest, "failed to parse JSON"},
		{"not found", NotFoundError("budget not found"), http.StatusNotFound, "budget not found"},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "boom"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, "rate limit exceeded, please try again later"},
		{"validation", ValidationError(core.ValidationErrors{"amount": core.MsgInvalidAmount}), http.StatusUnprocessableEntity, "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.build.Write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}
