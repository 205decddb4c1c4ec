package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const defaultCommentaryBaseURL = "https://www.brocardi.it"

// CommentaryInfo is the commentary payload for a canonical identifier:
// where the provision sits in the commented corpus, the commentary
// text, and the page it came from.
type CommentaryInfo struct {
	Position string `json:"position"`
	Info     string `json:"info"`
	Link     string `json:"link"`
}

// BrocardiClient retrieves commentary for a resolved reference from
// the Brocardi legal commentary site. Absence of commentary is a
// normal outcome, not an error.
type BrocardiClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBrocardiClient creates a commentary client
func NewBrocardiClient(cfg Config, logger *zap.Logger) *BrocardiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCommentaryBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrocardiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// GetInfo looks up commentary for a canonical identifier. Returns
// (nil, nil) when the corpus has nothing for it; network failures
// surface as COMMENTARY_FAILED.
func (c *BrocardiClient) GetInfo(ctx context.Context, urn string) (*CommentaryInfo, error) {
	ref, err := norm.ParseURN(urn)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/ricerca/?q=%s", c.cfg.BaseURL, url.QueryEscape(searchTerms(ref)))
	doc, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	link, position := firstResult(doc, c.cfg.BaseURL)
	if link == "" {
		c.logger.Debug("no commentary found", zap.String("urn", urn))
		return nil, nil
	}

	page, err := c.fetch(ctx, link)
	if err != nil {
		return nil, err
	}

	return &CommentaryInfo{
		Position: position,
		Info:     commentaryText(page),
		Link:     link,
	}, nil
}

// searchTerms builds a human search query from the citable fields.
func searchTerms(ref norm.ActReference) string {
	parts := []string{ref.Act.Type}
	if ref.Act.Number != "" {
		parts = append(parts, ref.Act.Number)
	}
	if ref.Act.Date != "" {
		parts = append(parts, ref.Act.Date)
	}
	if ref.Article != "" {
		parts = append(parts, "art. "+ref.Article)
	}
	return strings.Join(parts, " ")
}

func (c *BrocardiClient) fetch(ctx context.Context, target string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeCommentaryFailed, "invalid commentary URL: "+err.Error())
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("commentary fetch failed", zap.String("url", target), zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeCommentaryFailed, "commentary fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, shared.NewDomainError(shared.CodeCommentaryFailed,
			fmt.Sprintf("commentary site returned status %d", resp.StatusCode))
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeCommentaryFailed, "commentary page unparseable: "+err.Error())
	}
	return doc, nil
}

// firstResult returns the first result link and its breadcrumb-like
// position text, or empty strings when the result list is empty.
func firstResult(doc *html.Node, baseURL string) (link, position string) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if link != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if strings.Contains(href, "/articolo") || strings.Contains(href, "/art") {
				if strings.HasPrefix(href, "/") {
					href = baseURL + href
				}
				link = href
				position = collapseWhitespace(nodeText(n))
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return link, position
}

// commentaryText extracts the main prose of a commentary page.
func commentaryText(doc *html.Node) string {
	var best string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "article", "section":
				if text := collapseWhitespace(nodeText(n)); len(text) > len(best) {
					best = text
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	if best == "" {
		if body := findElement(doc, "body"); body != nil {
			best = collapseWhitespace(nodeText(body))
		}
	}
	return best
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
