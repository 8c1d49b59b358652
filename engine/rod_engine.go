package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/webpeel/models"
)

// RodFetchFunc is the callback type that wraps the browser automation
// logic living in the scraper package. It is injected from cmd/peel to
// avoid a circular import (engine -> scraper).
type RodFetchFunc func(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error)

// RodEngine is a browser-based engine that delegates to the browser
// automation logic via a callback function. forceStealth/forceCloaked
// distinguish Tier 2 (rod), Tier 3 (rod-stealth), and Tier 4 (rod-cloaked).
type RodEngine struct {
	fetchFunc    RodFetchFunc
	forceStealth bool
	forceCloaked bool
	name         string
}

// NewRodEngine creates a RodEngine.
func NewRodEngine(fetchFunc RodFetchFunc, forceStealth, forceCloaked bool) *RodEngine {
	name := "rod"
	switch {
	case forceCloaked:
		name = "rod-cloaked"
	case forceStealth:
		name = "rod-stealth"
	}
	return &RodEngine{
		fetchFunc:    fetchFunc,
		forceStealth: forceStealth,
		forceCloaked: forceCloaked,
		name:         name,
	}
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Fetch(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("%s: fetchFunc not configured", e.name)
	}

	r := *req
	r.Render = true
	if e.forceStealth {
		r.Stealth = true
	}
	if e.forceCloaked {
		r.Cloaked = true
	}

	result, err := e.fetchFunc(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	switch {
	case e.forceCloaked:
		result.Method = models.MethodCloaked
	case e.forceStealth:
		result.Method = models.MethodStealth
	default:
		result.Method = models.MethodBrowser
	}
	return result, nil
}
