package controller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/scriptstore"
	"github.com/dgnsrekt/har2grinder/internal/trace"
	"github.com/dgnsrekt/har2grinder/internal/types"
	"github.com/google/uuid"
)

// Service compiles uploaded traces and manages stored scripts.
type Service struct {
	defaults      grinder.Options
	scripts       *scriptstore.Store
	maxTraceBytes int
	now           func() time.Time
}

func NewService(defaults grinder.Options, scripts *scriptstore.Store, maxTraceBytes int) *Service {
	return &Service{defaults: defaults, scripts: scripts, maxTraceBytes: maxTraceBytes, now: time.Now}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &types.CodedError{Code: types.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) checkOverrides(ov grinder.Overrides) error {
	if ov.SleepBetweenPages != nil && *ov.SleepBetweenPages < 0 {
		return &types.CodedError{Code: types.CodeValidation, Message: "sleep_ms must not be negative"}
	}
	if ov.FirstPageNumber != nil && *ov.FirstPageNumber < 0 {
		return &types.CodedError{Code: types.CodeValidation, Message: "first_page_number must not be negative"}
	}
	return nil
}

// Compile parses a raw (optionally gzip-compressed) HAR and compiles it with
// the configured options plus ov.
func (s *Service) Compile(ctx context.Context, raw []byte, ov grinder.Overrides) (*grinder.Script, error) {
	if len(raw) == 0 {
		return nil, &types.CodedError{Code: types.CodeValidation, Message: "trace body is required"}
	}
	if s.maxTraceBytes > 0 && len(raw) > s.maxTraceBytes {
		return nil, &types.CodedError{Code: types.CodeValidation, Message: fmt.Sprintf("trace exceeds %d bytes", s.maxTraceBytes)}
	}
	if err := s.checkOverrides(ov); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr, err := trace.Parse(raw)
	if err != nil {
		return nil, err
	}
	return grinder.Compile(tr, s.defaults.With(ov))
}

// SaveScript compiles a trace and stores the result under a new id.
func (s *Service) SaveScript(ctx context.Context, raw []byte, name string, ov grinder.Overrides) (scriptstore.ScriptMeta, error) {
	if err := s.requireNonEmpty(name, "name"); err != nil {
		return scriptstore.ScriptMeta{}, err
	}
	script, err := s.Compile(ctx, raw, ov)
	if err != nil {
		return scriptstore.ScriptMeta{}, err
	}

	source := script.Bytes()
	sum := sha256.Sum256(source)
	opts := s.defaults.With(ov)
	meta := scriptstore.ScriptMeta{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(name),
		CreatedAt:         s.now().UTC(),
		SizeBytes:         len(source),
		SHA256:            hex.EncodeToString(sum[:]),
		ExcludedDomains:   opts.ExcludedDomains,
		SleepBetweenPages: opts.SleepBetweenPages,
		FirstPageNumber:   opts.FirstPageNumber,
		Stats:             script.Stats,
	}
	if err := s.scripts.Save(meta, source); err != nil {
		return scriptstore.ScriptMeta{}, err
	}
	slog.Info("script stored", "id", meta.ID, "name", meta.Name, "size_bytes", meta.SizeBytes)
	return meta, nil
}

func (s *Service) ListScripts(ctx context.Context) ([]scriptstore.ScriptMeta, error) {
	return s.scripts.List()
}

func (s *Service) GetScript(ctx context.Context, id string) (scriptstore.ScriptMeta, error) {
	return s.scripts.Get(strings.TrimSpace(id))
}

func (s *Service) ReadScriptSource(ctx context.Context, id string) ([]byte, error) {
	return s.scripts.ReadSource(strings.TrimSpace(id))
}

func (s *Service) DeleteScript(ctx context.Context, id string) error {
	return s.scripts.Delete(strings.TrimSpace(id))
}
