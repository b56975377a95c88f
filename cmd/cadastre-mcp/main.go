package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the error object of the cadastre API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// propertyResponse mirrors the cadastre property response.
type propertyResponse struct {
	Success     bool            `json:"success"`
	Record      json.RawMessage `json:"record"`
	Row         json.RawMessage `json:"row"`
	CacheStatus string          `json:"cache_status"`
	Error       *apiError       `json:"error"`
}

// subdivisionsResponse mirrors the cadastre subdivision list response.
type subdivisionsResponse struct {
	CountyID     string    `json:"county_id"`
	Subdivisions []string  `json:"subdivisions"`
	Error        *apiError `json:"error"`
}

// harvestResponse mirrors the cadastre harvest creation response.
type harvestResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  *apiError `json:"error"`
}

// harvestStatusResponse mirrors the cadastre harvest status response.
type harvestStatusResponse struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Done    int      `json:"done"`
	Records int      `json:"records"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func main() {
	apiURL := os.Getenv("CADASTRE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CADASTRE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CADASTRE_API_KEY is required")
		os.Exit(1)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetHeader("X-API-Key", apiKey).
		SetTimeout(600 * time.Second)

	s := server.NewMCPServer(
		"cadastre",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	getPropertyTool := mcp.NewTool("get_property",
		mcp.WithDescription("Fetch the normalized cadastral assessment record of one property: summary, owner, appraisal history with year-over-year deltas, dwelling, other buildings, commercial and market land data."),
		mcp.WithString("geocode",
			mcp.Required(),
			mcp.Description("The property geocode, e.g. 03-1033-32-1-10-11-0000"),
		),
		mcp.WithNumber("year",
			mcp.Description("Assessment year (default: the server's default year)"),
		),
		mcp.WithBoolean("flat",
			mcp.Description("Also return the record flattened into one row of category-qualified columns"),
		),
	)
	s.AddTool(getPropertyTool, handleGetProperty(client))

	listSubdivisionsTool := mcp.NewTool("list_subdivisions",
		mcp.WithDescription("List the subdivision names of a county."),
		mcp.WithString("county_id",
			mcp.Required(),
			mcp.Description("The cadastral county id"),
		),
	)
	s.AddTool(listSubdivisionsTool, handleListSubdivisions(client))

	harvestSubdivisionTool := mcp.NewTool("harvest_subdivision",
		mcp.WithDescription("Harvest every property of a subdivision and return the flattened rows. Waits for the harvest job to finish."),
		mcp.WithString("county_id",
			mcp.Required(),
			mcp.Description("The cadastral county id"),
		),
		mcp.WithString("subdivision",
			mcp.Required(),
			mcp.Description("The subdivision name, as returned by list_subdivisions"),
		),
		mcp.WithNumber("year",
			mcp.Description("Assessment year (default: the server's default year)"),
		),
	)
	s.AddTool(harvestSubdivisionTool, handleHarvestSubdivision(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func errorText(e *apiError, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func handleGetProperty(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		geocode, err := request.RequireString("geocode")
		if err != nil {
			return mcp.NewToolResultError("geocode is required"), nil
		}
		query := map[string]string{"flat": strconv.FormatBool(request.GetBool("flat", false))}
		if year := request.GetInt("year", 0); year > 0 {
			query["year"] = strconv.Itoa(year)
		}

		var out propertyResponse
		if _, err := client.R().
			SetContext(ctx).
			SetQueryParams(query).
			SetResult(&out).
			SetError(&out).
			Get("/api/v1/property/" + url.PathEscape(geocode)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		if !out.Success {
			return mcp.NewToolResultError(errorText(out.Error, "property lookup failed")), nil
		}

		result := "Record:\n" + indent(out.Record)
		if len(out.Row) > 0 && string(out.Row) != "null" {
			result += "\n\nFlat row:\n" + indent(out.Row)
		}
		return mcp.NewToolResultText(result), nil
	}
}

func handleListSubdivisions(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		countyID, err := request.RequireString("county_id")
		if err != nil {
			return mcp.NewToolResultError("county_id is required"), nil
		}

		var out subdivisionsResponse
		resp, err := client.R().
			SetContext(ctx).
			SetResult(&out).
			SetError(&out).
			Get("/api/v1/counties/" + url.PathEscape(countyID) + "/subdivisions")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		if resp.IsError() {
			return mcp.NewToolResultError(errorText(out.Error, "subdivision lookup failed")), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "County %s has %d subdivisions:\n\n", out.CountyID, len(out.Subdivisions))
		for _, name := range out.Subdivisions {
			sb.WriteString(name + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleHarvestSubdivision(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		countyID, err := request.RequireString("county_id")
		if err != nil {
			return mcp.NewToolResultError("county_id is required"), nil
		}
		subdivision, err := request.RequireString("subdivision")
		if err != nil {
			return mcp.NewToolResultError("subdivision is required"), nil
		}
		payload := map[string]any{
			"county_id":    countyID,
			"subdivisions": []string{subdivision},
		}
		if year := request.GetInt("year", 0); year > 0 {
			payload["year"] = year
		}

		var created harvestResponse
		resp, err := client.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&created).
			SetError(&created).
			Post("/api/v1/harvest")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("harvest request failed: %v", err)), nil
		}
		if resp.IsError() || created.ID == "" {
			return mcp.NewToolResultError(errorText(created.Error, "harvest job creation failed")), nil
		}

		status, err := pollJobCompletion(ctx, client, "/api/v1/harvest/"+created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling harvest job failed: %v", err)), nil
		}

		export, err := client.R().
			SetContext(ctx).
			SetQueryParam("format", "json").
			Get("/api/v1/harvest/" + created.ID + "/export")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Harvest %s: %s (%d records, %d skipped, %d failed)\n",
			status.ID, status.Status, status.Records, status.Skipped, status.Failed)
		for _, e := range status.Errors {
			sb.WriteString("error: " + e + "\n")
		}
		sb.WriteString("\n" + indent(export.Body()))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// pollJobCompletion polls a job endpoint until its status is no longer
// "processing" or ctx is cancelled.
func pollJobCompletion(ctx context.Context, client *resty.Client, endpoint string) (*harvestStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status harvestStatusResponse
			resp, err := client.R().SetContext(ctx).SetResult(&status).Get(endpoint)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			if resp.IsError() {
				return nil, fmt.Errorf("poll returned status %d", resp.StatusCode())
			}
			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}
