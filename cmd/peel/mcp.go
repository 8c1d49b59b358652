package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/use-agent/webpeel/config"
	"github.com/use-agent/webpeel/models"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the peel pipeline as an in-process MCP tool surface over stdio",
		RunE:  runMCP,
	}
}

func runMCP(*cobra.Command, []string) error {
	cfg := config.Load()
	initLogger(cfg.Log)

	sc, pl, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer sc.Close()

	s := server.NewMCPServer(
		"webpeel",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	peelTool := mcp.NewTool("peel",
		mcp.WithDescription("Fetch a web page and return cleaned, LLM-ready content (markdown/text/html), optionally rendered through a headless or stealth browser."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to extract content from")),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default), 'text', or 'html'"),
			mcp.Enum("markdown", "text", "html"),
		),
		mcp.WithBoolean("render", mcp.Description("Force headless-browser rendering instead of plain HTTP")),
		mcp.WithBoolean("stealth", mcp.Description("Use the stealth browser tier for bot-protected pages")),
		mcp.WithString("question", mcp.Description("Optional question to answer directly from the page content")),
		mcp.WithNumber("budget", mcp.Description("Soft token budget for BM25-based content distillation (0 disables)")),
	)
	s.AddTool(peelTool, handlePeel(pl))

	extractTool := mcp.NewTool("extract_data",
		mcp.WithDescription("Fetch a web page and extract structured data from it using an LLM, per a JSON schema. Requires a bring-your-own LLM API key."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to extract structured data from")),
		mcp.WithString("schema", mcp.Required(), mcp.Description("JSON schema string describing the desired output structure")),
		mcp.WithString("llm_provider", mcp.Description("LLM provider: 'openai' (default), 'anthropic', or 'google'")),
		mcp.WithString("llm_api_key", mcp.Required(), mcp.Description("API key for the chosen LLM provider")),
		mcp.WithString("llm_model", mcp.Description("Model name to use")),
	)
	s.AddTool(extractTool, handleExtractData(pl))

	return server.ServeStdio(s)
}

func handlePeel(pl pipelineRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		args := request.GetArguments()
		opts := models.PeelOptions{
			URL:      url,
			Format:   request.GetString("format", "markdown"),
			Render:   argBool(args, "render"),
			Stealth:  argBool(args, "stealth"),
			Question: request.GetString("question", ""),
			Budget:   argInt(args, "budget"),
		}

		result, err := pl.Peel(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("peel failed: %v", err)), nil
		}

		out, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func handleExtractData(pl pipelineRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		schema, err := request.RequireString("schema")
		if err != nil {
			return mcp.NewToolResultError("schema is required"), nil
		}
		apiKey, err := request.RequireString("llm_api_key")
		if err != nil {
			return mcp.NewToolResultError("llm_api_key is required"), nil
		}

		opts := models.PeelOptions{
			URL: url,
			Extract: &models.ExtractSpec{
				Schema: []byte(schema),
			},
			LLM: &models.LLMOptions{
				Provider: request.GetString("llm_provider", "openai"),
				APIKey:   apiKey,
				Model:    request.GetString("llm_model", ""),
			},
		}

		result, err := pl.Peel(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract failed: %v", err)), nil
		}
		if len(result.Extracted) == 0 {
			return mcp.NewToolResultError("extraction produced no structured data"), nil
		}
		return mcp.NewToolResultText(string(result.Extracted)), nil
	}
}

// pipelineRunner is the subset of *pipeline.Pipeline the MCP handlers
// need, so they can be unit tested against a fake.
type pipelineRunner interface {
	Peel(ctx context.Context, opts models.PeelOptions) (*models.PeelResult, error)
}

// argBool and argInt read optional non-string tool arguments out of the
// raw argument map, the way handleMapSite reads max_depth/max_pages in
// the teacher's MCP server: JSON numbers decode as float64.
func argBool(args map[string]any, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
