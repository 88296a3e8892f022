package client

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/markdown"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var mockDomains = []string{
	"zapier.com", "asana.com", "notion.so", "atlassian.com", "microsoft.com",
	"hubspot.com", "semrush.com", "ahrefs.com", "nerdwallet.com", "forbes.com",
	"techradar.com", "pcmag.com", "g2.com", "capterra.com", "shopify.com",
}

var mockTitlePatterns = []string{
	"{n} Best {topic} for {audience} ({year})",
	"{topic}: The Complete Guide ({year})",
	"Top {n} {topic} Compared: Pros, Cons, Pricing",
	"Best {topic} for Small Businesses",
	"Free vs Paid {topic}: What to Choose in {year}",
	"{topic} Review: An Honest Look ({year})",
	"How to Choose the Right {topic} for {audience}",
	"The Ultimate {topic} Buyer's Guide",
	"{n} {topic} You Should Know About in {year}",
	"{topic} for {audience}: A Practical Overview",
	"Why {topic} Matter More Than Ever in {year}",
	"Beginner's Guide to {topic} ({year} Edition)",
	"{topic} vs Alternatives: Which Is Best?",
	"{n} Affordable {topic} for {audience}",
	"What Experts Say About {topic} in {year}",
}

var mockSnippetPatterns = []string{
	"Discover the top {topic} options available today. We compare features, pricing, and user reviews to help you decide.",
	"Looking for the best {topic}? This guide covers everything you need to know before making a decision.",
	"Our experts evaluated dozens of {topic} to find the most reliable choices for {audience}.",
	"Not sure which {topic} to pick? Here is a side-by-side comparison of the leading options in {year}.",
	"This in-depth review of {topic} highlights the strengths and weaknesses of each option.",
	"Find out which {topic} offer the best value for money. Updated for {year}.",
	"Learn how {topic} can streamline your workflow and save time for {audience}.",
	"We tested {n} popular {topic} and ranked them based on ease of use, cost, and support.",
	"Explore our curated list of {topic} trusted by thousands of professionals worldwide.",
	"Stay ahead with the latest {topic} trends and recommendations for {audience} in {year}.",
	"A comprehensive breakdown of {topic} features that matter most to {audience}.",
	"Get expert insights on choosing the right {topic}. Includes real user feedback and benchmarks.",
}

var mockAudiences = []string{
	"Small Businesses", "Remote Teams", "Startups", "Enterprises",
	"Beginners", "Freelancers", "Marketing Teams",
}

var mockCategories = []string{
	"blog", "resources", "guides", "articles", "tools", "reviews", "comparisons",
}

const mockYear = "2026"

// MockSerpClient returns realistic, deterministic result listings without
// touching the network. The same topic and language always yield the same
// listing.
type MockSerpClient struct{}

// NewMockSerpClient creates a new offline result listing provider
func NewMockSerpClient() *MockSerpClient {
	return &MockSerpClient{}
}

func mockSeed(topic, lang string) int64 {
	sum := sha256.Sum256([]byte(topic + "|" + lang))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// FetchTopResults returns k ranked results for topic. k is capped by the
// smallest fixture pool.
func (c *MockSerpClient) FetchTopResults(ctx context.Context, topic, lang string, k int) ([]model.SerpResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max := len(mockSnippetPatterns); k > max {
		return nil, fmt.Errorf("mock serp: at most %d results available, asked for %d", max, k)
	}

	rng := rand.New(rand.NewSource(mockSeed(topic, lang)))
	domains := shuffled(rng, mockDomains)
	titles := shuffled(rng, mockTitlePatterns)
	snippets := shuffled(rng, mockSnippetPatterns)
	categories := shuffled(rng, mockCategories)

	slug := markdown.Slugify(topic)
	results := make([]model.SerpResult, 0, k)
	for i := 0; i < k; i++ {
		r := strings.NewReplacer(
			"{topic}", topic,
			"{audience}", mockAudiences[rng.Intn(len(mockAudiences))],
			"{n}", fmt.Sprint(5+rng.Intn(11)),
			"{year}", mockYear,
		)
		results = append(results, model.SerpResult{
			Rank:    i + 1,
			URL:     fmt.Sprintf("https://%s/%s/%s-%d", domains[i], categories[i%len(categories)], slug, i+1),
			Title:   r.Replace(titles[i]),
			Snippet: r.Replace(snippets[i]),
		})
	}
	return results, nil
}

func shuffled(rng *rand.Rand, in []string) []string {
	out := append([]string(nil), in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
