package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/dshills/stategraph/graph/tool"
)

// tavilyEndpoint is the Tavily search API.
const tavilyEndpoint = "https://api.tavily.com/search"

// technicalDomains restricts searches to sources that tend to carry
// actionable fixes rather than marketing pages.
var technicalDomains = []string{
	"stackoverflow.com",
	"github.com",
	"docs.python.org",
	"docs.docker.com",
	"kubernetes.io",
	"cloud.google.com/docs",
	"learn.microsoft.com",
	"developer.mozilla.org",
}

// TavilySearch implements tool.Tool using the Tavily web search API, which
// returns clean summarised results suited to feeding a model.
//
// Input parameters:
//   - query: search query string (required)
//   - max_results: result cap, defaults to 5
//
// Output:
//   - results: list of {title, url, content, score}
//   - formatted: the results rendered as one prompt-ready string
type TavilySearch struct {
	http     tool.Tool
	apiKey   string
	endpoint string
}

// NewTavilySearch creates the search tool. An empty apiKey reads the
// TAVILY_API_KEY environment variable; the key is validated lazily on the
// first call so construction never fails.
func NewTavilySearch(apiKey string, client *http.Client) *TavilySearch {
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	return &TavilySearch{
		http:     tool.NewHTTPTool(client),
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
	}
}

// Name returns the tool identifier.
func (t *TavilySearch) Name() string {
	return "search_web"
}

// Call executes one search query.
func (t *TavilySearch) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	query, ok := input["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("query parameter required (string)")
	}
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily API key not set (TAVILY_API_KEY)")
	}

	maxResults := 5
	if n, ok := input["max_results"].(int); ok && n > 0 {
		maxResults = n
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"api_key":         t.apiKey,
		"query":           query,
		"search_depth":    "advanced",
		"max_results":     maxResults,
		"include_domains": technicalDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	resp, err := t.http.Call(ctx, map[string]interface{}{
		"method": "POST",
		"url":    t.endpoint,
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
		},
		"body": string(reqBody),
	})
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}

	status, _ := resp["status_code"].(int)
	body, _ := resp["body"].(string)
	if status != http.StatusOK {
		return nil, fmt.Errorf("tavily search: status %d: %s", status, truncate(body, 200))
	}

	var payload struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]interface{}, 0, len(payload.Results))
	var formatted strings.Builder
	for i, r := range payload.Results {
		results = append(results, map[string]interface{}{
			"title":   r.Title,
			"url":     r.URL,
			"content": r.Content,
			"score":   r.Score,
		})
		fmt.Fprintf(&formatted, "--- Result %d ---\nTitle: %s\nURL: %s\nContent: %s\n\n",
			i+1, r.Title, r.URL, r.Content)
	}
	if len(results) == 0 {
		formatted.WriteString("No search results found.")
	}

	return map[string]interface{}{
		"results":   results,
		"formatted": strings.TrimSpace(formatted.String()),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
