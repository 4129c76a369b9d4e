package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/anna-farino/RiskAi-sub010/models"
)

func main() {
	apiURL := os.Getenv("RISKAI_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RISKAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "RISKAI_API_KEY is required")
		os.Exit(1)
	}
	c := &apiClient{baseURL: strings.TrimRight(apiURL, "/"), key: apiKey}

	s := server.NewMCPServer(
		"riskscraper",
		"0.3.0",
		server.WithToolCapabilities(false),
	)

	discoverTool := mcp.NewTool("discover_links",
		mcp.WithDescription("List the external article links on a news or advisory source page. Handles pages that load more items on click or scroll."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The source page to mine for links"),
		),
		mcp.WithString("topic_hint",
			mcp.Description("Words that move matching links to the front, e.g. 'ransomware healthcare'"),
		),
		mcp.WithNumber("max_links",
			mcp.Description("Maximum number of links to return (default: server setting)"),
		),
	)
	s.AddTool(discoverTool, handleDiscover(c))

	extractTool := mcp.NewTool("extract_article",
		mcp.WithDescription("Extract the title, author, publish date and body of a single article page."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The article page to extract"),
		),
		mcp.WithString("format",
			mcp.Description("Body format: 'text' (default) or 'markdown' (when the server renders Markdown)"),
			mcp.Enum("text", "markdown"),
		),
	)
	s.AddTool(extractTool, handleExtract(c))

	batchTool := mcp.NewTool("batch_extract",
		mcp.WithDescription("Extract several article pages in parallel. Failed pages are listed and skipped."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of article URLs"),
		),
	)
	s.AddTool(batchTool, handleBatch(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

type apiClient struct {
	baseURL string
	key     string
}

// do sends a request to the scraper API and decodes the JSON body into out.
func (a *apiClient) do(ctx context.Context, client *http.Client, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", a.key)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func errorText(fallback string, e *models.ErrorDetail) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
}

func handleDiscover(c *apiClient) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.DiscoverRequest{
			URL:       url,
			TopicHint: request.GetString("topic_hint", ""),
			MaxLinks:  request.GetInt("max_links", 0),
		}

		var resp models.DiscoverResponse
		if err := c.do(ctx, client, http.MethodPost, "/api/v1/discover", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("discovery failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d links from %s\n\n", resp.Total, url)
		for _, l := range resp.Links {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleExtract(c *apiClient) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		var resp models.ExtractResponse
		if err := c.do(ctx, client, http.MethodPost, "/api/v1/extract", models.ExtractRequest{URL: url}, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success || resp.Article == nil {
			return mcp.NewToolResultError(errorText("extraction failed", resp.Error)), nil
		}

		return mcp.NewToolResultText(formatArticle(resp.Article, request.GetString("format", "text"))), nil
	}
}

func handleBatch(c *apiClient) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		var created models.BatchResponse
		if err := c.do(ctx, client, http.MethodPost, "/api/v1/batch/extract", models.BatchRequest{URLs: urls}, &created); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if created.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		status, err := c.poll(ctx, client, "/api/v1/batch/"+created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d ok, %d failed of %d)\n\n", status.ID, status.Status, status.Completed, status.Failed, status.Total)
		for i, item := range status.Results {
			if item == nil {
				continue
			}
			if item.Error != nil {
				fmt.Fprintf(&sb, "--- [%d] FAILED %s: %s ---\n\n", i+1, item.URL, errorText("", item.Error))
				continue
			}
			fmt.Fprintf(&sb, "--- [%d] ---\n%s\n\n", i+1, formatArticle(item.Article, "text"))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// poll waits until a batch job leaves the processing state or ctx ends.
func (a *apiClient) poll(ctx context.Context, client *http.Client, path string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.BatchStatusResponse
			if err := a.do(ctx, client, http.MethodGet, path, nil, &status); err != nil {
				return nil, err
			}
			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}

func formatArticle(a *models.ExtractedArticle, format string) string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSource: %s\n", a.Title, a.SourceURL)
	if a.Author != "" {
		fmt.Fprintf(&sb, "Author: %s\n", a.Author)
	}
	if a.PublishDate != nil {
		fmt.Fprintf(&sb, "Published: %s\n", a.PublishDate.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "Method: %s (confidence %.2f)\n\n", a.ExtractionMethod, a.Confidence)
	if format == "markdown" && a.Markdown != "" {
		sb.WriteString(a.Markdown)
	} else {
		sb.WriteString(a.Content)
	}
	return sb.String()
}
