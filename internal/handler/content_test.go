package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/inkwell/inkwell/internal/handler/dto"
)

func TestContentHandler_Generate(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 100)

	rec := f.do(t, http.MethodPost, "/generate", map[string]any{
		"template_slug":  "custom-slug",
		"template_name":  "Custom",
		"form_data":      map[string]any{"topic": "go", "words": 300},
		"ai_prompt":      "Write about",
		"component_type": "twitter-post",
	}, asAccount(account))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body dto.GenerateResponse
	decodeBody(t, rec, &body)

	if body.Generation.OutputText != "generated text" || body.Generation.OutputLength != 14 {
		t.Errorf("unexpected generation: %+v", body.Generation)
	}
	if body.CreditBalance != 86 || body.CreditCeiling != 100 {
		t.Errorf("quota = %d/%d, want 86/100", body.CreditBalance, body.CreditCeiling)
	}
	if got, _ := body.Generation.InputFields.Get("words"); got != "300" {
		t.Errorf("numeric field should be kept as text, got %q", got)
	}

	want := "Write about\ntopic: go\nwords: 300\n\nFormat as a concise Twitter post under 280 characters."
	if got := f.generator.lastPrompt(); got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
	if got := f.balanceOf(t, account.ID); got != 86 {
		t.Errorf("stored balance = %d, want 86", got)
	}
}

func TestContentHandler_Generate_CatalogPrompt(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 100)

	rec := f.do(t, http.MethodPost, "/generate", map[string]any{
		"template_slug": "generate-blog-title",
		"template_name": "Blog Title Generator",
		"form_data":     map[string]string{"niche": "databases"},
	}, asAccount(account))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(f.generator.lastPrompt(), "Generate 10 compelling") {
		t.Errorf("catalog prompt not used: %q", f.generator.lastPrompt())
	}
}

func TestContentHandler_Generate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		balance    int64
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing template name",
			balance:    100,
			body:       map[string]any{"template_slug": "x", "form_data": map[string]string{"a": "b"}, "ai_prompt": "p"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "empty form data",
			balance:    100,
			body:       map[string]any{"template_slug": "x", "template_name": "X", "form_data": map[string]string{}, "ai_prompt": "p"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "unknown component",
			balance:    100,
			body:       map[string]any{"template_slug": "x", "template_name": "X", "form_data": map[string]string{"a": "b"}, "ai_prompt": "p", "component_type": "tiktok"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "catalog template missing required field",
			balance:    100,
			body:       map[string]any{"template_slug": "generate-blog-title", "template_name": "Blog", "form_data": map[string]string{"outline": "x"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "nested form data",
			balance:    100,
			body:       `{"template_slug":"x","template_name":"X","form_data":{"a":{"b":1}},"ai_prompt":"p"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_JSON",
		},
		{
			name:       "exhausted quota",
			balance:    0,
			body:       map[string]any{"template_slug": "x", "template_name": "X", "form_data": map[string]string{"a": "b"}, "ai_prompt": "p"},
			wantStatus: http.StatusForbidden,
			wantCode:   "QUOTA_EXHAUSTED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			account := f.seedAccount(t, tt.balance)

			rec := f.do(t, http.MethodPost, "/generate", tt.body, asAccount(account))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
			if f.generator.calls.Load() != 0 {
				t.Error("generator must not be called for a rejected request")
			}
			if got := f.balanceOf(t, account.ID); got != tt.balance {
				t.Errorf("balance changed to %d", got)
			}
		})
	}
}

func TestContentHandler_Generate_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errUpstream
	account := f.seedAccount(t, 100)

	rec := f.do(t, http.MethodPost, "/generate", map[string]any{
		"template_slug": "x", "template_name": "X", "form_data": map[string]string{"a": "b"}, "ai_prompt": "p",
	}, asAccount(account))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body dto.ErrorResponse
	decodeBody(t, rec, &body)
	if body.Error.Code != "GENERATION_FAILED" {
		t.Errorf("unexpected code %s", body.Error.Code)
	}
	if strings.Contains(body.Error.Message, "overloaded") || body.Error.Detail != "" {
		t.Errorf("upstream detail leaked in production mode: %+v", body.Error)
	}
	if got := f.balanceOf(t, account.ID); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
}

func TestContentHandler_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/history", "/history/abc"} {
		if rec := f.do(t, http.MethodGet, path, nil, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", path, rec.Code)
		}
	}
	rec := f.do(t, http.MethodPost, "/generate", map[string]string{}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("generate: expected status 401, got %d", rec.Code)
	}
}

func TestContentHandler_History(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 1000)
	other := f.seedAccount(t, 1000)

	body := map[string]any{"template_slug": "x", "template_name": "X", "form_data": map[string]string{"a": "b"}, "ai_prompt": "p"}
	for i := 0; i < 3; i++ {
		if rec := f.do(t, http.MethodPost, "/generate", body, asAccount(account)); rec.Code != http.StatusCreated {
			t.Fatalf("generate %d: status %d", i, rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/history?page=1&limit=2", nil, asAccount(account))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var page dto.HistoryResponse
	decodeBody(t, rec, &page)
	if len(page.Generations) != 2 || page.Pagination.Total != 3 || page.Pagination.Pages != 2 {
		t.Errorf("unexpected page: %+v", page.Pagination)
	}

	id := page.Generations[0].ID
	if rec := f.do(t, http.MethodGet, "/history/"+id, nil, asAccount(account)); rec.Code != http.StatusOK {
		t.Errorf("owner lookup: expected status 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/history/"+id, nil, asAccount(other))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign lookup: expected status 404, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/history", nil, asAccount(other))
	var empty dto.HistoryResponse
	decodeBody(t, rec, &empty)
	if empty.Generations == nil || len(empty.Generations) != 0 {
		t.Errorf("expected an empty list, got %v", empty.Generations)
	}
}
