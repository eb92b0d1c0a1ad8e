package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/metrics"
	"github.com/enviducate/backend/pkg/logger"
)

const siteFilter = "site:michigan.gov OR site:epa.gov OR site:usgs.gov"

const customSearchURL = "https://www.googleapis.com/customsearch/v1"

type Client struct {
	apiKey     string
	engineID   string
	maxResults int
	httpClient *http.Client
	searchURL  string
}

// Result is one web-search hit used as inference context. Source is the
// normalized publisher name cited back to the user.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

func NewClient(apiKey, engineID string, maxResults int, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     apiKey,
		engineID:   engineID,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		searchURL:  customSearchURL,
	}
}

// Search looks up recent Michigan environmental data for the query. It
// prefers the Google Custom Search API and falls back to scraping result
// pages when no API credentials are configured.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	searchQuery := buildSearchQuery(query)
	logger.Info("Performing web search", zap.String("query", searchQuery))
	metrics.WebSearchTriggered.Inc()

	if c.apiKey != "" && c.engineID != "" {
		return c.searchWithCustomSearch(ctx, searchQuery)
	}

	return c.searchWithScrape(ctx, searchQuery)
}

// buildSearchQuery reduces the raw query to its content words and scopes
// it to Michigan environmental sources. Tokenization failures fall back
// to the raw query text.
func buildSearchQuery(query string) string {
	keywords := query

	if doc, err := prose.NewDocument(query, prose.WithExtraction(false), prose.WithSegmentation(false)); err == nil {
		var words []string
		for _, tok := range doc.Tokens() {
			switch {
			case strings.HasPrefix(tok.Tag, "NN"),
				strings.HasPrefix(tok.Tag, "JJ"),
				strings.HasPrefix(tok.Tag, "VB"):
				words = append(words, tok.Text)
			}
		}
		if len(words) > 0 {
			keywords = strings.Join(words, " ")
		}
	}

	return fmt.Sprintf("%s Michigan environmental data %s", keywords, siteFilter)
}

func (c *Client) searchWithCustomSearch(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Add("key", c.apiKey)
	params.Add("cx", c.engineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}

	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			Link:    item.Link,
			Source:  SourceName(item.Link),
		})
	}

	logger.Info("Web search completed", zap.Int("results", len(results)))

	return results, nil
}

func (c *Client) searchWithScrape(ctx context.Context, query string) ([]Result, error) {
	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d",
		url.QueryEscape(query), c.maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := make([]Result, 0)
	doc.Find("div.g").Each(func(i int, s *goquery.Selection) {
		if i >= c.maxResults {
			return
		}

		title := s.Find("h3").Text()
		link, _ := s.Find("a").Attr("href")
		snippet := s.Find("div.VwiC3b").Text()

		if title != "" && link != "" {
			results = append(results, Result{
				Title:   title,
				Snippet: snippet,
				Link:    link,
				Source:  SourceName(link),
			})
		}
	})

	logger.Info("Web search scrape completed", zap.Int("results", len(results)))

	return results, nil
}

// ScrapePage fetches a result page and returns its visible text, capped
// at 5000 characters.
func (c *Client) ScrapePage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())

	if len(text) > 5000 {
		text = text[:5000]
	}

	return text, nil
}

// SourceName maps a result URL to the publisher name cited in summaries.
func SourceName(link string) string {
	switch {
	case strings.Contains(link, "michigan.gov"):
		return "Michigan DNR"
	case strings.Contains(link, "epa.gov"):
		return "US EPA"
	case strings.Contains(link, "usgs.gov"):
		return "USGS"
	case strings.Contains(link, "nature.org"):
		return "The Nature Conservancy"
	default:
		return "Environmental Research"
	}
}
