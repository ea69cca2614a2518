package steps

import (
	"github.com/mudlet/bugbot/internal/core/pipeline"
)

// RegisterAll registers every built-in step with the registry.
func RegisterAll(registry *pipeline.Registry) {
	registry.Register("extract", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewExtract(deps), nil
	})
	registry.Register("analyze", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewAnalyze(deps), nil
	})
	registry.Register("preview_builder", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewPreviewBuilder(deps), nil
	})
}
