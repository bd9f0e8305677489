package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/scriptstore"
	"github.com/dgnsrekt/har2grinder/internal/types"
)

const scriptID = "123e4567-e89b-12d3-a456-426614174000"

type stubService struct {
	err     error
	gotRaw  []byte
	gotOv   grinder.Overrides
	gotName string
}

func (s *stubService) Compile(ctx context.Context, raw []byte, ov grinder.Overrides) (*grinder.Script, error) {
	s.gotRaw, s.gotOv = raw, ov
	if s.err != nil {
		return nil, s.err
	}
	tr := &types.Trace{
		Pages:     []types.Page{{ID: "page_1", Title: "Home"}},
		Exchanges: []types.Exchange{{PageRef: "page_1", Method: "GET", URL: "http://example.com/"}},
	}
	return grinder.Compile(tr, grinder.DefaultOptions())
}

func (s *stubService) SaveScript(ctx context.Context, raw []byte, name string, ov grinder.Overrides) (scriptstore.ScriptMeta, error) {
	s.gotRaw, s.gotOv, s.gotName = raw, ov, name
	if s.err != nil {
		return scriptstore.ScriptMeta{}, s.err
	}
	return scriptstore.ScriptMeta{ID: scriptID, Name: name, CreatedAt: time.Now().UTC()}, nil
}

func (s *stubService) ListScripts(ctx context.Context) ([]scriptstore.ScriptMeta, error) {
	return nil, s.err
}

func (s *stubService) GetScript(ctx context.Context, id string) (scriptstore.ScriptMeta, error) {
	if s.err != nil {
		return scriptstore.ScriptMeta{}, s.err
	}
	return scriptstore.ScriptMeta{ID: id}, nil
}

func (s *stubService) ReadScriptSource(ctx context.Context, id string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("# script " + id + "\n"), nil
}

func (s *stubService) DeleteScript(ctx context.Context, id string) error { return s.err }

func serve(t *testing.T, svc Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewServer(svc, 1<<20)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	w := serve(t, &stubService{}, http.MethodGet, "/docs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
}

func TestHealth(t *testing.T) {
	w := serve(t, &stubService{}, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestCompileReturnsScriptText(t *testing.T) {
	svc := &stubService{}
	w := serve(t, svc, http.MethodPost, "/api/v1/compile", `{"log":{}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/x-python") {
		t.Fatalf("Content-Type = %q, want text/x-python", got)
	}
	if got := w.Header().Get("X-Har2grinder-Compiled"); got != "1" {
		t.Fatalf("X-Har2grinder-Compiled = %q, want 1", got)
	}
	if !strings.Contains(w.Body.String(), "request1001.GET('')") {
		t.Fatalf("body is not the compiled script: %s", w.Body.String())
	}
	if string(svc.gotRaw) != `{"log":{}}` {
		t.Fatalf("service got body %q", svc.gotRaw)
	}
	if svc.gotOv.SleepBetweenPages != nil || svc.gotOv.FirstPageNumber != nil || len(svc.gotOv.ExcludedDomains) != 0 {
		t.Fatalf("default query produced overrides: %+v", svc.gotOv)
	}
}

func TestCompileQueryOverrides(t *testing.T) {
	svc := &stubService{}
	w := serve(t, svc, http.MethodPost, "/api/v1/compile?exclude=a.example,b.example:8080&sleep_ms=10&first_page_number=4", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	ov := svc.gotOv
	if strings.Join(ov.ExcludedDomains, "|") != "a.example|b.example:8080" {
		t.Fatalf("ExcludedDomains = %q", ov.ExcludedDomains)
	}
	if ov.SleepBetweenPages == nil || *ov.SleepBetweenPages != 10 {
		t.Fatalf("SleepBetweenPages = %v, want 10", ov.SleepBetweenPages)
	}
	if ov.FirstPageNumber == nil || *ov.FirstPageNumber != 4 {
		t.Fatalf("FirstPageNumber = %v, want 4", ov.FirstPageNumber)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{types.CodeValidation, http.StatusBadRequest},
		{types.CodeInputParse, http.StatusBadRequest},
		{types.CodeMalformed, http.StatusBadRequest},
		{types.CodeUnknownPageRef, http.StatusUnprocessableEntity},
		{types.CodeScriptNotFound, http.StatusNotFound},
		{types.CodeInputAccess, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := &stubService{err: types.NewError(tt.code, "boom", nil)}
			w := serve(t, svc, http.MethodPost, "/api/v1/compile", `{}`)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestSaveAndFetchScript(t *testing.T) {
	svc := &stubService{}
	w := serve(t, svc, http.MethodPost, "/api/v1/scripts?name=checkout", `{}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if svc.gotName != "checkout" {
		t.Fatalf("name = %q, want checkout", svc.gotName)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/scripts/"+scriptID+"/source") {
		t.Fatalf("response missing source url: %s", w.Body.String())
	}

	w = serve(t, svc, http.MethodGet, "/api/v1/scripts/"+scriptID+"/source", "")
	if w.Code != http.StatusOK || w.Body.String() != "# script "+scriptID+"\n" {
		t.Fatalf("source = %d %q", w.Code, w.Body.String())
	}

	w = serve(t, svc, http.MethodGet, "/api/v1/scripts", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"scripts":[]`) {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}

	w = serve(t, svc, http.MethodDelete, "/api/v1/scripts/"+scriptID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "deleted") {
		t.Fatalf("delete = %d %s", w.Code, w.Body.String())
	}
}

func TestMissingScriptIs404(t *testing.T) {
	svc := &stubService{err: types.NewError(types.CodeScriptNotFound, "script not found: x", nil)}
	w := serve(t, svc, http.MethodGet, "/api/v1/scripts/"+scriptID+"/metadata", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	serve(t, &stubService{}, http.MethodGet, "/health", "")
	if strings.Contains(buf.String(), "path=/health") {
		t.Fatalf("health probe logged at info: %s", buf.String())
	}

	svc := &stubService{err: types.NewError(types.CodeInputAccess, "disk gone", nil)}
	serve(t, svc, http.MethodPost, "/api/v1/compile?sleep_ms=5", `{}`)
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `query="sleep_ms=5"`) || !strings.Contains(out, "status=500") {
		t.Fatalf("server error not logged at warn with query: %s", out)
	}
}
