// Command peel is the CLI entrypoint: it wires the fetch dispatcher,
// cleaner, domain extractors, search fallback, and change tracker into a
// pipeline.Pipeline, then either runs a single extraction from the
// command line or serves the same pipeline as an in-process MCP tool
// surface for agent callers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/webpeel/challenge"
	"github.com/use-agent/webpeel/changetrack"
	"github.com/use-agent/webpeel/cleaner"
	"github.com/use-agent/webpeel/config"
	"github.com/use-agent/webpeel/domainapi"
	"github.com/use-agent/webpeel/engine"
	"github.com/use-agent/webpeel/models"
	"github.com/use-agent/webpeel/pipeline"
	"github.com/use-agent/webpeel/scraper"
	"github.com/use-agent/webpeel/search"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "peel [url]",
		Short: "Extract clean, LLM-ready content from a web page",
		Args:  cobra.ExactArgs(1),
		RunE:  runPeel,
	}

	root.Flags().String("format", "markdown", "output format: markdown|html|text")
	root.Flags().Bool("render", false, "force browser rendering instead of plain HTTP")
	root.Flags().Bool("stealth", false, "use the stealth browser tier")
	root.Flags().Bool("cloaked", false, "use the cloaked browser tier")
	root.Flags().Bool("raw", false, "skip content extraction, return the full page")
	root.Flags().Bool("lite", false, "use the faster density-pruning extractor")
	root.Flags().Bool("readable", false, "force the readability extractor")
	root.Flags().Bool("images", false, "include extracted images in the result")
	root.Flags().Bool("screenshot", false, "capture a screenshot (implies rendering)")
	root.Flags().Bool("full-page", false, "capture the full scrollable page in the screenshot")
	root.Flags().Int("timeout", 30000, "request timeout in milliseconds")
	root.Flags().Int("wait", 0, "milliseconds to wait after navigation before extracting")
	root.Flags().Int("budget", 0, "soft token budget for BM25 distillation (0 disables)")
	root.Flags().String("question", "", "question to answer from the page content")
	root.Flags().Bool("chunk", false, "split the result into paragraph-sized chunks")
	root.Flags().Bool("change-tracking", false, "report whether this URL changed since the last peel")
	root.Flags().String("selector", "", "CSS selector to restrict extraction to")

	root.AddCommand(mcpCmd())
	return root
}

func runPeel(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	initLogger(cfg.Log)

	sc, pl, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer sc.Close()

	opts := models.PeelOptions{URL: args[0]}
	opts.Format, _ = cmd.Flags().GetString("format")
	opts.Render, _ = cmd.Flags().GetBool("render")
	opts.Stealth, _ = cmd.Flags().GetBool("stealth")
	opts.Cloaked, _ = cmd.Flags().GetBool("cloaked")
	opts.Raw, _ = cmd.Flags().GetBool("raw")
	opts.Lite, _ = cmd.Flags().GetBool("lite")
	opts.Readable, _ = cmd.Flags().GetBool("readable")
	opts.Images, _ = cmd.Flags().GetBool("images")
	opts.Screenshot, _ = cmd.Flags().GetBool("screenshot")
	opts.FullPage, _ = cmd.Flags().GetBool("full-page")
	opts.Timeout, _ = cmd.Flags().GetInt("timeout")
	opts.Wait, _ = cmd.Flags().GetInt("wait")
	opts.Budget, _ = cmd.Flags().GetInt("budget")
	opts.Question, _ = cmd.Flags().GetString("question")
	opts.Chunk, _ = cmd.Flags().GetBool("chunk")
	opts.ChangeTracking, _ = cmd.Flags().GetBool("change-tracking")
	opts.Selector, _ = cmd.Flags().GetString("selector")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := pl.Peel(ctx, opts)
	if err != nil {
		return fmt.Errorf("peel: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// buildPipeline wires every pipeline.Deps collaborator from cfg and
// returns both the pipeline and the underlying scraper, whose Close must
// run on shutdown to drain the page pool and kill the browser process.
func buildPipeline(cfg *config.Config) (*scraper.Scraper, *pipeline.Pipeline, error) {
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.AdaptivePool)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise scraper: %w", err)
	}

	httpEngine := engine.NewHTTPEngine()
	rodEngine := engine.NewRodEngine(sc.Fetch, false, false)
	rodStealthEngine := engine.NewRodEngine(sc.Fetch, true, false)
	rodCloakedEngine := engine.NewRodEngine(sc.Fetch, true, true)
	engines := []engine.Engine{httpEngine, rodEngine, rodStealthEngine, rodCloakedEngine}

	memory := engine.NewDomainMemory(24 * time.Hour)
	delays := resolveEscalationDelays(cfg.Engine.EscalationDelays, len(engines))
	dispatcher := engine.NewDispatcher(engines, delays, memory, challenge.Detect)

	stealthFetch := func(ctx context.Context, url string) (string, error) {
		result, err := sc.Fetch(ctx, &models.FetchRequest{
			URL:       url,
			Stealth:   true,
			WaitUntil: "domcontentloaded",
			TimeoutMs: int(cfg.Scraper.DefaultTimeout.Milliseconds()),
		})
		if err != nil {
			return "", err
		}
		return result.HTML, nil
	}

	searchEngine := search.NewEngine(search.Config{
		GoogleSearchKey: cfg.Search.GoogleAPIKey,
		GoogleSearchCX:  cfg.Search.GoogleSearchEngine,
		BraveSearchKey:  cfg.Search.BraveAPIKey,
	}, stealthFetch)

	pl := pipeline.New(pipeline.Deps{
		Dispatcher:  dispatcher,
		Cleaner:     cleaner.NewCleaner(),
		Domain:      domainapi.NewRegistry(),
		Search:      searchEngine,
		ChangeTrack: changetrack.NewStore(cfg.ChangeTrack.MaxEntries),
	})

	return sc, pl, nil
}

// resolveEscalationDelays pads or trims the configured delay ladder to
// match the number of engines actually wired, repeating the last
// configured delay for engines a short PEEL_ESCALATION_DELAYS override
// leaves out (engine.NewDispatcher would otherwise zero-fill them, starting
// those engines immediately).
func resolveEscalationDelays(configured []time.Duration, n int) []time.Duration {
	if len(configured) >= n {
		return configured[:n]
	}
	out := make([]time.Duration, n)
	copy(out, configured)
	last := time.Duration(0)
	if len(configured) > 0 {
		last = configured[len(configured)-1]
	}
	for i := len(configured); i < n; i++ {
		out[i] = last
	}
	return out
}
