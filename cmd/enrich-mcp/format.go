package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/use-agent/enrich/models"
)

// errorMessage renders an API error envelope, falling back to fallback.
func errorMessage(detail *models.ErrorDetail, fallback string) string {
	if detail == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

func formatRecord(sb *strings.Builder, rec *models.ProductRecord) {
	fmt.Fprintf(sb, "Product: %s\n\n", rec.ProductName)
	fmt.Fprintf(sb, "Description:\n%s\n\n", rec.Description)
	sb.WriteString("Specifications:\n")
	if rec.Specifications == nil {
		sb.WriteString("  " + models.NotFound + "\n")
		return
	}
	keys := make([]string, 0, len(rec.Specifications))
	for k := range rec.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %s\n", k, rec.Specifications[k])
	}
}

func formatAttempts(sb *strings.Builder, attempts []models.Attempt) {
	if len(attempts) == 0 {
		return
	}
	sb.WriteString("\n---\nAttempts:\n")
	for i, a := range attempts {
		fmt.Fprintf(sb, "  %d. %s [%s/%s] %s", i+1, a.URL, a.Class, a.Path, a.Outcome)
		if a.ErrorCode != "" {
			fmt.Fprintf(sb, " (%s)", a.ErrorCode)
		}
		sb.WriteByte('\n')
	}
}

// formatEnrich renders a successful enrich response.
func formatEnrich(resp *models.EnrichResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nPersisted: %t\n\n", resp.SourceURL, resp.Persisted)
	if resp.Record != nil {
		formatRecord(&sb, resp.Record)
	}
	formatAttempts(&sb, resp.Attempts)
	return sb.String()
}

func formatRank(resp *models.RankResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d candidates:\n\n", resp.Total)
	for i, c := range resp.Candidates {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, c.Class, c.URL)
	}
	return sb.String()
}

func formatBatch(resp *models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n", resp.ID, resp.Status, resp.Completed, resp.Total)
	if s := resp.Summary; s != nil {
		fmt.Fprintf(&sb, "Succeeded: %d, exhausted: %d, store failures: %d, failed: %d\n",
			s.Succeeded, s.Exhausted, s.StoreFailed, s.Failed)
	}
	sb.WriteByte('\n')
	for i, r := range resp.Results {
		if r == nil {
			continue
		}
		switch {
		case r.Outcome == models.OutcomeSuccess:
			fmt.Fprintf(&sb, "--- [%d] %s: %s ---\n", i+1, r.ProductID, r.SourceURL)
		default:
			fmt.Fprintf(&sb, "--- [%d] %s FAILED: %s ---\n", i+1, r.ProductID, errorMessage(r.Error, string(r.Outcome)))
		}
	}
	return sb.String()
}
