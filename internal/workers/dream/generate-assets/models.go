// internal/workers/dream/generate-assets/models.go
package generateassets

import (
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/brief"
)

type Input struct {
	DesignPrompt string       `json:"designPrompt"`
	Brief        *brief.Brief `json:"brief"`
	UserID       string       `json:"userId"`
}

type Output struct {
	Assets    *assets.Output `json:"assets"`
	MediaKeys []string       `json:"mediaKeys"`
	Partial   bool           `json:"partial"`
}
