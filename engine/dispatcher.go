package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/webpeel/models"
)

// ChallengeDetectorFunc classifies a fetched page as a challenge/block page.
// The engine package depends on this as a function value rather than an
// interface from the challenge package to avoid a package cycle (challenge
// does not need to know about engine).
type ChallengeDetectorFunc func(html string, statusCode int) models.ChallengeVerdict

// tierOf ranks engine names so the dispatcher knows when "escalate to the
// next tier" means something concrete. Unknown names rank lowest.
func tierOf(name string) int {
	switch name {
	case "http", "simple":
		return 0
	case "rod", "browser":
		return 1
	case "rod-stealth", "stealth":
		return 2
	case "rod-cloaked", "cloaked":
		return 3
	default:
		return 0
	}
}

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the fastest engine first and progressively escalates to
// heavier engines if earlier ones fail, time out, or are classified as a
// challenge/block page below the stealth tier.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	detect           ChallengeDetectorFunc
}

// NewDispatcher creates a Dispatcher with the given engines and escalation
// delays. engines[i] starts after escalationDelays[i] from the race
// beginning. The first delay should be 0 (immediate start). detect may be
// nil, in which case no block-driven escalation occurs (the dispatcher
// behaves purely as a race-to-first-success).
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory, detect ChallengeDetectorFunc) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
		detect:           detect,
	}
}

// Dispatch runs the multi-engine race for the given request and returns
// the first successful, non-blocked result (escalating once past a block
// at a sub-stealth tier). If all engines fail, it returns the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error) {
	domain := extractDomain(req.URL)

	if remembered := d.memory.Get(domain); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() == remembered {
				slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
				result, err := eng.Fetch(ctx, req)
				if err == nil && !d.isBlocked(result) {
					return result, nil
				}
				slog.Info("domain memory miss (engine failed or blocked), running full race",
					"domain", domain, "engine", remembered, "error", err)
				d.memory.Delete(domain)
				break
			}
		}
	}

	result, err := d.race(ctx, req, domain)
	if err != nil {
		return nil, err
	}
	if d.isBlocked(result) && tierOf(string(result.Method)) < tierOf("rod-stealth") {
		if escalated := d.escalateOnce(ctx, req, result); escalated != nil {
			return escalated, nil
		}
	}
	return result, nil
}

// isBlocked runs the challenge detector over a fetch result, if configured.
func (d *Dispatcher) isBlocked(result *models.FetchResult) bool {
	if d.detect == nil || result == nil {
		return false
	}
	verdict := d.detect(result.HTML, result.StatusCode)
	result.ChallengeDetected = verdict.IsChallenge
	return verdict.IsChallenge
}

// escalateOnce tries the highest-tier engine available, once, after a
// sub-stealth block. Returns nil if no higher tier exists or it also fails.
func (d *Dispatcher) escalateOnce(ctx context.Context, req *models.FetchRequest, blocked *models.FetchResult) *models.FetchResult {
	var best Engine
	for _, eng := range d.engines {
		if tierOf(eng.Name()) > tierOf(string(blocked.Method)) {
			if best == nil || tierOf(eng.Name()) > tierOf(best.Name()) {
				best = eng
			}
		}
	}
	if best == nil {
		return nil
	}
	slog.Info("escalating past block", "from", blocked.Method, "to", best.Name(), "url", req.URL)
	result, err := best.Fetch(ctx, req)
	if err != nil {
		return nil
	}
	return result
}

// race runs all engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *models.FetchRequest, domain string) (*models.FetchResult, error) {
	type raceResult struct {
		name   string
		result *models.FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		delay := d.escalationDelays[i]
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				select {
				case <-raceCtx.Done():
					return
				case <-time.After(delay):
				}
			}

			select {
			case <-raceCtx.Done():
				return
			default:
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{name: e.Name(), result: result, err: err}
		}(eng, delay)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		raceCancel()
		slog.Info("engine won race", "engine", rr.result.Method, "url", req.URL)
		d.memory.Set(domain, rr.name)
		return rr.result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
