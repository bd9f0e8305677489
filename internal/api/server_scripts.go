package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/har2grinder/internal/scriptstore"
)

func registerScriptHandlers(api huma.API, svc Service, maxBodyBytes int64) {
	type saveScriptOutput struct {
		Body struct {
			Script scriptstore.ScriptMeta `json:"script"`
			URL    string                 `json:"url"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID:   "save-script",
		Method:        http.MethodPost,
		Path:          "/api/v1/scripts",
		Summary:       "Compile a HAR trace and store the script",
		Tags:          []string{"Scripts"},
		MaxBodyBytes:  maxBodyBytes,
		DefaultStatus: http.StatusCreated,
	},
		func(ctx context.Context, input *struct {
			Name string `query:"name" doc:"Display name for the stored script"`
			CompileParams
			RawBody []byte
		}) (*saveScriptOutput, error) {
			meta, err := svc.SaveScript(ctx, input.RawBody, input.Name, input.overrides())
			if err != nil {
				return nil, mapErr(err)
			}
			out := &saveScriptOutput{}
			out.Body.Script = meta
			out.Body.URL = "/api/v1/scripts/" + meta.ID + "/source"
			return out, nil
		})

	type listScriptsOutput struct {
		Body struct {
			Scripts []scriptstore.ScriptMeta `json:"scripts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-scripts", Method: http.MethodGet, Path: "/api/v1/scripts", Summary: "List stored scripts", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *struct{}) (*listScriptsOutput, error) {
			metas, err := svc.ListScripts(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listScriptsOutput{}
			out.Body.Scripts = metas
			if out.Body.Scripts == nil {
				out.Body.Scripts = []scriptstore.ScriptMeta{}
			}
			return out, nil
		})

	type scriptIDInput struct {
		ScriptID string `path:"script_id"`
	}
	type getScriptOutput struct {
		Body scriptstore.ScriptMeta
	}
	huma.Register(api, huma.Operation{OperationID: "get-script-metadata", Method: http.MethodGet, Path: "/api/v1/scripts/{script_id}/metadata", Summary: "Get stored script metadata", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *scriptIDInput) (*getScriptOutput, error) {
			meta, err := svc.GetScript(ctx, input.ScriptID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &getScriptOutput{Body: meta}, nil
		})

	type scriptSourceOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{OperationID: "get-script-source", Method: http.MethodGet, Path: "/api/v1/scripts/{script_id}/source", Summary: "Download stored script source", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *scriptIDInput) (*scriptSourceOutput, error) {
			src, err := svc.ReadScriptSource(ctx, input.ScriptID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &scriptSourceOutput{ContentType: scriptContentType, Body: src}, nil
		})

	type deleteScriptOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-script", Method: http.MethodDelete, Path: "/api/v1/scripts/{script_id}", Summary: "Delete stored script", Tags: []string{"Scripts"}},
		func(ctx context.Context, input *scriptIDInput) (*deleteScriptOutput, error) {
			if err := svc.DeleteScript(ctx, input.ScriptID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteScriptOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}
