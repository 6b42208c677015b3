package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/enrich/models"
)

func main() {
	apiURL := os.Getenv("ENRICH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("ENRICH_API_KEY")

	s := server.NewMCPServer(
		"enrich",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	enrichTool := mcp.NewTool("enrich_product",
		mcp.WithDescription("Search the web for a product, render candidate pages and extract its name, description and specifications. Stops at the first complete record."),
		mcp.WithString("product_id",
			mcp.Required(),
			mcp.Description("Catalog identifier the record is stored under"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Descriptive product name used as the search query"),
		),
		mcp.WithString("manufacturer",
			mcp.Description("Product manufacturer, informational only"),
		),
		mcp.WithBoolean("persist",
			mcp.Description("Write the accepted record to the catalog (default: true)"),
		),
	)
	s.AddTool(enrichTool, handleEnrich(newAPIClient(apiURL, apiKey, 10*time.Minute)))

	rankTool := mcp.NewTool("rank_candidates",
		mcp.WithDescription("Rank candidate product page URLs without fetching them. Partner sites come first, then priority retailers, then URLs matching product page patterns."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("Candidate URLs to rank"),
		),
	)
	s.AddTool(rankTool, handleRank(newAPIClient(apiURL, apiKey, 30*time.Second)))

	batchTool := mcp.NewTool("batch_enrich",
		mcp.WithDescription("Enrich many products and wait for the batch to finish. Pass products, or set pending to process the catalog backlog."),
		mcp.WithArray("products",
			mcp.Description("Products to enrich, each an object with product_id and name"),
		),
		mcp.WithBoolean("pending",
			mcp.Description("Read the products from the catalog backlog instead"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum backlog products when pending is set (default: 100, max: 500)"),
		),
	)
	s.AddTool(batchTool, handleBatch(newAPIClient(apiURL, apiKey, time.Minute)))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleEnrich(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("product_id")
		if err != nil {
			return mcp.NewToolResultError("product_id is required"), nil
		}
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		persist := request.GetBool("persist", true)

		payload := models.EnrichRequest{
			ProductID:    id,
			Name:         name,
			Manufacturer: request.GetString("manufacturer", ""),
			Persist:      &persist,
		}
		_, body, err := api.post(ctx, "/api/v1/enrich", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("enrich request failed: %v", err)), nil
		}

		var resp models.EnrichResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			var sb strings.Builder
			sb.WriteString(errorMessage(resp.Error, "enrichment failed"))
			formatAttempts(&sb, resp.Attempts)
			return mcp.NewToolResultError(sb.String()), nil
		}
		return mcp.NewToolResultText(formatEnrich(&resp)), nil
	}
}

func handleRank(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		status, body, err := api.post(ctx, "/api/v1/rank", models.RankRequest{URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rank request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(body, "rank failed")), nil
		}

		var resp models.RankResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatRank(&resp)), nil
	}
}

func handleBatch(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req models.BatchRequest
		args := request.GetArguments()
		if raw, ok := args["products"]; ok {
			// Round-trip through JSON to get typed products.
			b, err := json.Marshal(raw)
			if err == nil {
				err = json.Unmarshal(b, &req.Products)
			}
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("products must be objects with product_id and name: %v", err)), nil
			}
		}
		req.Pending = request.GetBool("pending", false)
		req.Limit = request.GetInt("limit", 0)
		if len(req.Products) == 0 && !req.Pending {
			return mcp.NewToolResultError("provide products or set pending"), nil
		}

		status, body, err := api.post(ctx, "/api/v1/batch", req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(body, "batch job creation failed")), nil
		}

		var created models.BatchResponse
		if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		resultBody, err := api.pollJob(ctx, "/api/v1/batch/"+created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var resp models.BatchStatusResponse
		if err := json.Unmarshal(resultBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}
		return mcp.NewToolResultText(formatBatch(&resp)), nil
	}
}

// apiError decodes an ErrorResponse body.
func apiError(body []byte, fallback string) string {
	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fallback
	}
	return errorMessage(resp.Error, fallback)
}
