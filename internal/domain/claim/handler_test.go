package claim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func generate(t *testing.T, f *fixture, month, query string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/receipts/"+month+query, nil), rec)
	c.SetParamNames("yearMonth")
	c.SetParamValues(month)
	return rec, NewHandler(f.svc).Generate(c)
}

func TestHandler_GenerateJSON(t *testing.T) {
	rec, err := generate(t, newFixture(), "202406", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var p Preview
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ReceiptCount != 1 || p.TotalPoints != 385 {
		t.Errorf("unexpected preview: %+v", p)
	}
}

func TestHandler_GenerateUKE(t *testing.T) {
	rec, err := generate(t, newFixture(), "202406", "?format=uke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename=receipt_202406.UKE" {
		t.Errorf("unexpected disposition %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != MIMEShiftJIS {
		t.Errorf("unexpected content type %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "UK,1,13,3,1234567,202406,") {
		t.Error("expected the UK record first")
	}
}

func TestHandler_GenerateErrors(t *testing.T) {
	tests := []struct {
		month  string
		query  string
		status int
		kind   Kind
	}{
		{"202405", "", http.StatusNotFound, KindNoPaidRows},
		{"2024xx", "", http.StatusBadRequest, KindInvalidMonth},
		{"202406", "?format=csv", http.StatusBadRequest, KindInvalidFormat},
	}
	for _, tt := range tests {
		_, err := generate(t, newFixture(), tt.month, tt.query)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok {
			t.Fatalf("%s%s: expected *echo.HTTPError, got %v", tt.month, tt.query, err)
		}
		if httpErr.Code != tt.status {
			t.Errorf("%s%s: expected %d, got %d", tt.month, tt.query, tt.status, httpErr.Code)
		}
		body, _ := httpErr.Message.(map[string]string)
		if body["kind"] != string(tt.kind) {
			t.Errorf("%s%s: expected kind %s, got %v", tt.month, tt.query, tt.kind, httpErr.Message)
		}
	}
}
