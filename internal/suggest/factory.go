package suggest

import (
	"fmt"

	"github.com/mkellner/basis/internal/service"
)

// New creates a suggester for the given provider. Currently only "openai" is
// supported; an empty provider disables suggestions and returns nil.
func New(provider string, cfg Config) (service.Suggester, error) {
	switch provider {
	case "":
		return nil, nil
	case "openai":
		return newOpenAISuggester(cfg)
	default:
		return nil, fmt.Errorf("unknown suggestion provider: %q", provider)
	}
}
