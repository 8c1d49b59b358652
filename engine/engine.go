// Package engine implements the tiered fetch strategy engine: escalating
// from a plain HTTP fetch with a Chrome TLS fingerprint, through headless
// and stealth browser automation, up to a cloaked residential-proxy tier.
package engine

import (
	"context"

	"github.com/use-agent/webpeel/models"
)

// Engine is the interface every fetch tier implements.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod", "rod-stealth").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error)
}
