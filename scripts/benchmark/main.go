package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/enrich/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "enrich API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 1, "number of runs per product for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Sample products covering partner, retailer and long-tail searches.
var testProducts = []models.Product{
	{ID: "bench-1", Name: "Glenfiddich 12 Year Old Single Malt Scotch Whisky 0.7l"},
	{ID: "bench-2", Name: "Chanel N°5 Eau de Parfum 100ml"},
	{ID: "bench-3", Name: "Lindt Excellence 85% Cocoa 100g"},
	{ID: "bench-4", Name: "Hugo Boss Bottled Eau de Toilette 50ml"},
	{ID: "bench-5", Name: "Toblerone Milk Chocolate 360g"},
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	Attempts   int    `json:"attempts"`
	Candidates int    `json:"candidates"`
	SourceURL  string `json:"source_url,omitempty"`
	Path       string `json:"path,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type productResult struct {
	Product     models.Product `json:"product"`
	Runs        []runResult    `json:"runs"`
	AvgMs       float64        `json:"avg_ms"`
	AvgAttempts float64        `json:"avg_attempts"`
	Successes   int            `json:"successes"`
}

type benchmarkReport struct {
	Timestamp      string          `json:"timestamp"`
	APIURL         string          `json:"api_url"`
	RunsPerProduct int             `json:"runs_per_product"`
	Results        []productResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Enrich Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs:      %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure enrich is running (enrich -mode serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		APIURL:         *apiURL,
		RunsPerProduct: *runs,
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	for _, p := range testProducts {
		fmt.Printf("Benchmarking %s ...\n", p.Name)
		pr := productResult{Product: p}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkProduct(client, p, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d attempts  %s\n", rr.TotalMs, rr.Attempts, rr.SourceURL)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			pr.Runs = append(pr.Runs, rr)
		}

		average(&pr)
		report.Results = append(report.Results, pr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// benchmarkProduct runs one preview enrichment; nothing is persisted.
func benchmarkProduct(client *http.Client, p models.Product, run int) runResult {
	rr := runResult{Run: run}

	persist := false
	body, err := json.Marshal(models.EnrichRequest{ProductID: p.ID, Name: p.Name, Persist: &persist})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/enrich", bytes.NewReader(body))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var er models.EnrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = er.Success
	rr.TotalMs = er.Timing.TotalMs
	rr.Attempts = len(er.Attempts)
	rr.Candidates = len(er.Candidates)
	rr.SourceURL = er.SourceURL
	if n := len(er.Attempts); n > 0 {
		rr.Path = er.Attempts[n-1].Path
	}
	if er.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", er.Error.Code, er.Error.Message)
	}
	return rr
}

func average(pr *productResult) {
	for _, r := range pr.Runs {
		if !r.Success {
			continue
		}
		pr.Successes++
		pr.AvgMs += float64(r.TotalMs)
		pr.AvgAttempts += float64(r.Attempts)
	}
	if pr.Successes > 0 {
		n := float64(pr.Successes)
		pr.AvgMs /= n
		pr.AvgAttempts /= n
	}
}

func printTable(results []productResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Product\tAvg Latency\tAvg Attempts\tSuccess\tPath\n")
	fmt.Fprintf(w, "───────\t───────────\t────────────\t───────\t────\n")

	for _, r := range results {
		if r.Successes == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t-\t0/%d\t-\n", truncate(r.Product.Name, 40), len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%d/%d\t%s\n",
			truncate(r.Product.Name, 40),
			int64(r.AvgMs),
			r.AvgAttempts,
			r.Successes, len(r.Runs),
			lastPath(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

// lastPath is the extraction path of the most recent successful run.
func lastPath(runs []runResult) string {
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success {
			return runs[i].Path
		}
	}
	return "-"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
