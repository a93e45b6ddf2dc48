package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/moot-ai/moot-backend/internal/core"
)

// Legal-focused domains for filtering.
var legalDomains = []string{
	"law.cornell.edu",
	"scholar.google.com",
	"justia.com",
	"findlaw.com",
	"oyez.org",
	"supremecourt.gov",
	"courtlistener.com",
	"casetext.com",
	"law.com",
}

// WebSearchTool searches for case law, statutes and general legal
// information. It uses the Perplexity search API when a key is configured
// and falls back to scraping DuckDuckGo otherwise.
type WebSearchTool struct {
	client        *http.Client
	perplexityKey string
	perplexityURL string
}

func NewWebSearchTool(perplexityKey string) *WebSearchTool {
	return &WebSearchTool{
		client:        &http.Client{Timeout: 15 * time.Second},
		perplexityKey: perplexityKey,
		perplexityURL: "https://api.perplexity.ai/search",
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Definition() core.ToolDefinition {
	return MakeDef("web_search",
		"Search the web for legal cases, statutes, and general legal information. Returns results with citations including title, URL, snippet, and date.",
		map[string]any{
			"query":         StringProp("The search query (e.g., 'California arbitration unconscionability cases')"),
			"domain_filter": StringProp("Optional comma-separated list of domains to filter. Use 'legal' to automatically filter to legal sources."),
		},
		[]string{"query"},
	)
}

func (t *WebSearchTool) Execute(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Query        string `json:"query"`
		DomainFilter string `json:"domain_filter"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return Error("invalid input: " + err.Error())
	}
	if params.Query == "" {
		return Error("query is required")
	}

	var domains []string
	if params.DomainFilter != "" {
		if strings.EqualFold(params.DomainFilter, "legal") {
			domains = legalDomains
		} else {
			for _, d := range strings.Split(params.DomainFilter, ",") {
				if d = strings.TrimSpace(d); d != "" {
					domains = append(domains, d)
				}
			}
		}
	}

	var results []searchResult
	var err error
	if t.perplexityKey != "" {
		results, err = t.searchPerplexity(ctx, params.Query, domains)
	} else {
		results, err = t.searchDDG(ctx, params.Query)
	}
	if err != nil {
		return Error(fmt.Sprintf("Search failed: %v. Try a different query.", err))
	}
	if len(results) == 0 {
		return Success("No results found for: " + params.Query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Search Results for:** %s\n\n", params.Query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, r.title))
		sb.WriteString(fmt.Sprintf("**Source:** [%s](%s)\n", r.url, r.url))
		if r.date != "" {
			sb.WriteString(fmt.Sprintf("**Date:** %s\n", r.date))
		}
		snippet := r.snippet
		if len(snippet) > 500 {
			snippet = snippet[:core.FloorCharBoundary(snippet, 500)] + "..."
		}
		sb.WriteString(fmt.Sprintf("\n%s\n\n---\n\n", snippet))
	}
	return Success(sb.String())
}

type searchResult struct {
	title   string
	url     string
	snippet string
	date    string
}

func (t *WebSearchTool) searchPerplexity(ctx context.Context, query string, domains []string) ([]searchResult, error) {
	body := map[string]any{
		"query":               query,
		"max_results":         5,
		"max_tokens_per_page": 1024,
	}
	if len(domains) > 0 {
		body["search_domain_filter"] = domains
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.perplexityURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.perplexityKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("perplexity status %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var results []searchResult
	for _, r := range parsed.Results {
		results = append(results, searchResult{title: r.Title, url: r.URL, snippet: r.Snippet, date: r.Date})
	}
	return results, nil
}

func (t *WebSearchTool) searchDDG(ctx context.Context, query string) ([]searchResult, error) {
	u := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Moot/1.0)")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []searchResult
	doc.Find(".result").Each(func(i int, s *goquery.Selection) {
		if i >= 5 {
			return
		}
		title := strings.TrimSpace(s.Find(".result__a").Text())
		link, _ := s.Find(".result__a").Attr("href")
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())

		if title != "" && link != "" {
			results = append(results, searchResult{
				title:   title,
				url:     link,
				snippet: snippet,
			})
		}
	})

	return results, nil
}
