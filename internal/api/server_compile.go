package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/har2grinder/internal/grinder"
)

type scriptTextOutput struct {
	ContentType     string `header:"Content-Type"`
	Pages           string `header:"X-Har2grinder-Pages"`
	Compiled        string `header:"X-Har2grinder-Compiled"`
	SkippedCached   string `header:"X-Har2grinder-Skipped-Cached"`
	SkippedExcluded string `header:"X-Har2grinder-Skipped-Excluded"`
	Body            []byte
}

func newScriptTextOutput(s *grinder.Script) *scriptTextOutput {
	return &scriptTextOutput{
		ContentType:     scriptContentType,
		Pages:           strconv.Itoa(s.Stats.Pages),
		Compiled:        strconv.Itoa(s.Stats.Compiled),
		SkippedCached:   strconv.Itoa(s.Stats.SkippedCached),
		SkippedExcluded: strconv.Itoa(s.Stats.SkippedExcluded),
		Body:            s.Bytes(),
	}
}

func registerCompileHandlers(api huma.API, svc Service, maxBodyBytes int64) {
	huma.Register(api, huma.Operation{
		OperationID:  "compile-trace",
		Method:       http.MethodPost,
		Path:         "/api/v1/compile",
		Summary:      "Compile a HAR trace into a Grinder script",
		Description:  "Request body is the HAR document, plain or gzip-compressed. The response is the generated Jython script.",
		Tags:         []string{"Compile"},
		MaxBodyBytes: maxBodyBytes,
	},
		func(ctx context.Context, input *struct {
			CompileParams
			RawBody []byte
		}) (*scriptTextOutput, error) {
			script, err := svc.Compile(ctx, input.RawBody, input.overrides())
			if err != nil {
				return nil, mapErr(err)
			}
			return newScriptTextOutput(script), nil
		})
}
