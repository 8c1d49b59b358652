package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	binary  = flag.String("binary", "peel", "path to the peel CLI binary")
	runs    = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Response shape, mirroring models.PeelResult's JSON fields ---

type peelResponse struct {
	Content       string     `json:"content"`
	Metadata      metadata   `json:"metadata"`
	LinkCount     int        `json:"linkCount"`
	Tokens        int        `json:"tokens"`
	PrunedPercent float64    `json:"prunedPercent"`
	Timing        timingInfo `json:"timing"`
	Warning       string     `json:"warning,omitempty"`
}

type metadata struct {
	Title string `json:"title"`
}

type timingInfo struct {
	TotalMs      int64 `json:"totalMs"`
	NavigationMs int64 `json:"navigationMs"`
	CleaningMs   int64 `json:"cleaningMs"`
}

// --- Benchmark result types ---

type runResult struct {
	Run            int     `json:"run"`
	TotalMs        int64   `json:"total_ms"`
	NavigationMs   int64   `json:"navigation_ms"`
	CleaningMs     int64   `json:"cleaning_ms"`
	CleanedTokens  int     `json:"cleaned_tokens"`
	SavingsPercent float64 `json:"savings_percent"`
	ContentLength  int     `json:"content_length"`
	HasTitle       bool    `json:"has_title"`
	HasLinks       bool    `json:"has_links"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs        float64 `json:"total_ms"`
	NavigationMs   float64 `json:"navigation_ms"`
	CleaningMs     float64 `json:"cleaning_ms"`
	SavingsPercent float64 `json:"savings_percent"`
	ContentLength  float64 `json:"content_length"`
}

type urlResult struct {
	URL      string      `json:"url"`
	Label    string      `json:"label"`
	Runs     []runResult `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	Binary     string      `json:"binary"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== WebPeel Benchmark Suite ===")
	fmt.Printf("Binary:    %s\n", *binary)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkBinary(*binary); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot run %s: %v\n", *binary, err)
		fmt.Fprintf(os.Stderr, "Build it first (e.g. go build ./cmd/peel)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Binary:     *binary,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %.1f%% saved\n", rr.TotalMs, rr.SavingsPercent)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkBinary(path string) error {
	_, err := exec.LookPath(path)
	return err
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, *binary, url, "--timeout", "60000")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	wallMs := time.Since(start).Milliseconds()

	if err != nil {
		rr.Error = fmt.Sprintf("%v: %s", err, strings.TrimSpace(stderr.String()))
		return rr
	}

	var sr peelResponse
	if err := json.Unmarshal(stdout.Bytes(), &sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = true
	rr.TotalMs = sr.Timing.TotalMs
	if rr.TotalMs == 0 {
		rr.TotalMs = wallMs
	}
	rr.NavigationMs = sr.Timing.NavigationMs
	rr.CleaningMs = sr.Timing.CleaningMs
	rr.CleanedTokens = sr.Tokens
	rr.SavingsPercent = sr.PrunedPercent
	rr.ContentLength = len(sr.Content)
	rr.HasTitle = sr.Metadata.Title != ""
	rr.HasLinks = sr.LinkCount > 0
	if sr.Warning != "" {
		rr.Error = sr.Warning
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.NavigationMs += float64(r.NavigationMs)
		avg.CleaningMs += float64(r.CleaningMs)
		avg.SavingsPercent += r.SavingsPercent
		avg.ContentLength += float64(r.ContentLength)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.NavigationMs /= n
	avg.CleaningMs /= n
	avg.SavingsPercent /= n
	avg.ContentLength /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tTokens Saved\tContent Len\tSucceeded\n")
	fmt.Fprintf(w, "───\t───────────\t────────────\t───────────\t─────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f%%\t%s\t%d/%d\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.SavingsPercent,
			formatInt(int(r.Averages.ContentLength)),
			succeededCount(r.Runs),
			len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func succeededCount(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if r.Success {
			n++
		}
	}
	return n
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
