package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor("/?limit=1000"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	if p := paramsFor("/?offset=-5"); p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, 20, 0)
	if resp.Total != 50 || resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected HasMore=true")
	}
	if NewResponse(nil, 20, 20, 0).HasMore {
		t.Error("expected HasMore=false on the last page")
	}
}
