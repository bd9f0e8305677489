package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/scriptstore"
	"github.com/dgnsrekt/har2grinder/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Compile(ctx context.Context, raw []byte, ov grinder.Overrides) (*grinder.Script, error)
	SaveScript(ctx context.Context, raw []byte, name string, ov grinder.Overrides) (scriptstore.ScriptMeta, error)
	ListScripts(ctx context.Context) ([]scriptstore.ScriptMeta, error)
	GetScript(ctx context.Context, id string) (scriptstore.ScriptMeta, error)
	ReadScriptSource(ctx context.Context, id string) ([]byte, error)
	DeleteScript(ctx context.Context, id string) error
}

// scriptContentType is served for generated Jython scripts.
const scriptContentType = "text/x-python; charset=utf-8"

// CompileParams are the per-request overrides shared by compile endpoints.
type CompileParams struct {
	Exclude         []string `query:"exclude" doc:"Additional excluded hosts (host[:port] or scheme://host[:port])"`
	SleepMS         int      `query:"sleep_ms" default:"-1" doc:"Pause between pages in ms. -1 uses the configured value."`
	FirstPageNumber int      `query:"first_page_number" default:"-1" doc:"Page number offset. -1 uses the configured value."`
}

func (p CompileParams) overrides() grinder.Overrides {
	ov := grinder.Overrides{ExcludedDomains: p.Exclude}
	if p.SleepMS != -1 {
		v := p.SleepMS
		ov.SleepBetweenPages = &v
	}
	if p.FirstPageNumber != -1 {
		v := p.FirstPageNumber
		ov.FirstPageNumber = &v
	}
	return ov
}

// NewServer builds the HTTP handler. maxBodyBytes bounds uploaded traces.
func NewServer(svc Service, maxBodyBytes int64) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("har2grinder API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerMiscHandlers(api)
	registerCompileHandlers(api, svc, maxBodyBytes)
	registerScriptHandlers(api, svc, maxBodyBytes)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation, types.CodeInputParse, types.CodeMalformed:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeUnknownPageRef:
			return huma.Error422UnprocessableEntity(coded.Message)
		case types.CodeScriptNotFound:
			return huma.Error404NotFound(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
