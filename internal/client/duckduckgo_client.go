package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// duckDuckGoRegions maps language codes to the kl region parameter
var duckDuckGoRegions = map[string]string{
	"en": "us-en",
	"de": "de-de",
	"fr": "fr-fr",
	"es": "es-es",
	"it": "it-it",
	"nl": "nl-nl",
	"pt": "pt-pt",
	"tr": "tr-tr",
}

// DuckDuckGoClient fetches live result listings from the DuckDuckGo HTML
// endpoint
type DuckDuckGoClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewDuckDuckGoClient creates a new DuckDuckGo result listing client
func NewDuckDuckGoClient(cfg *config.SerpConfig) *DuckDuckGoClient {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGoClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    duckDuckGoURL,
	}
}

// FetchTopResults returns at most k organic results for topic.
func (c *DuckDuckGoClient) FetchTopResults(ctx context.Context, topic, lang string, k int) ([]model.SerpResult, error) {
	form := url.Values{}
	form.Set("q", topic)
	if region, ok := duckDuckGoRegions[strings.ToLower(lang)]; ok {
		form.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; aiseo-bot/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("duckduckgo error (status %d): %s", resp.StatusCode, string(body))
	}

	results, err := ParseDuckDuckGoResults(resp.Body, k)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return results, nil
}

// ParseDuckDuckGoResults extracts ranked organic results from a DuckDuckGo
// HTML results page. Ads and entries without a usable link are skipped.
func ParseDuckDuckGoResults(r io.Reader, k int) ([]model.SerpResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []model.SerpResult
	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if len(results) >= k {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			if hasClass(n, "result--ad") {
				return
			}
			if res, ok := parseResultBlock(n); ok {
				res.Rank = len(results) + 1
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
	}
	walker(doc)

	return results, nil
}

func parseResultBlock(n *html.Node) (model.SerpResult, bool) {
	var res model.SerpResult
	link := findByClass(n, "result__a")
	if link == nil {
		return res, false
	}
	target := resolveRedirect(attr(link, "href"))
	if target == "" {
		return res, false
	}
	res.URL = target
	res.Title = strings.Join(strings.Fields(textContent(link)), " ")
	if snip := findByClass(n, "result__snippet"); snip != nil {
		res.Snippet = strings.Join(strings.Fields(textContent(snip)), " ")
	}
	if res.Snippet == "" {
		res.Snippet = res.Title
	}
	return res, res.Title != ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		u, err = url.Parse(target)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
		b.WriteByte(' ')
	}
	return b.String()
}
