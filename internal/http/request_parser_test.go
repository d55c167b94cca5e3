package http

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantJSON bool
		field    string
		want     string
	}{
		{"json string", `{"description":"Coffee"}`, false, true, "description", "Coffee"},
		{"json number", `{"amount":12.5}`, false, true, "amount", "12.5"},
		{"json missing field", `{"amount":1}`, false, true, "description", ""},
		{"form encoded", "description=Coffee+beans&amount=3", false, false, "description", "Coffee beans"},
		{"control characters removed", `{"description":"Cof\u0000fee"}`, false, true, "description", "Coffee"},
		{"surrounding space kept", `{"description":" Coffee "}`, false, true, "description", " Coffee "},
		{"empty body", "", false, false, "description", ""},
		{"malformed json", `{"description":`, true, false, "", ""},
		{"json array", `[1,2]`, true, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(httptest.NewRecorder(), r)
			err := p.Parse()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedBody) {
					t.Errorf("Parse() error = %v, want ErrMalformedBody", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
			if got := p.Get(tt.field); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	body := `{"description":"` + strings.Repeat("a", maxFormBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(httptest.NewRecorder(), r)
	if err := p.Parse(); !errors.Is(err, ErrMalformedBody) {
		t.Errorf("Parse() error = %v", err)
	}
	if err := p.Parse(); !errors.Is(err, ErrMalformedBody) {
		t.Errorf("second Parse() should return the same error, got %v", err)
	}
}

func TestImportReader(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a,b"))
		r.Header.Set("Content-Type", "text/csv")
		body, done, err := importReader(httptest.NewRecorder(), r)
		if err != nil {
			t.Fatal(err)
		}
		defer done()
		data, _ := io.ReadAll(body)
		if string(data) != "a,b" {
			t.Errorf("body = %q", data)
		}
	})

	t.Run("multipart file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "export.csv")
		_, _ = fw.Write([]byte("x,y"))
		_ = mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		body, done, err := importReader(httptest.NewRecorder(), r)
		if err != nil {
			t.Fatal(err)
		}
		defer done()
		data, _ := io.ReadAll(body)
		if string(data) != "x,y" {
			t.Errorf("body = %q", data)
		}
	})

	t.Run("multipart without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("other", "v")
		_ = mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		if _, _, err := importReader(httptest.NewRecorder(), r); !errors.Is(err, ErrMalformedBody) {
			t.Errorf("error = %v", err)
		}
	})
}
