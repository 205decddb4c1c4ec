package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	defaultRegisterBaseURL = "https://www.normattiva.it/uri-res/N2Ls?"
	defaultHTTPTimeout     = 20 * time.Second
	maxResponseBytes       = 8 << 20 // 8MB
)

// Config contains configuration for the register client
type Config struct {
	// BaseURL is the URN resolution endpoint of the register
	BaseURL string
	// Timeout bounds a single fetch
	Timeout time.Duration
	// UserAgent sent with every request
	UserAgent string
}

// NormattivaClient locates acts in the authoritative register and
// extracts their structure and article text. Parsing is deliberately
// tolerant: the corpus markup is not under our control, so the client
// works from generic document structure rather than exact selectors.
type NormattivaClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNormattivaClient creates a register client
func NewNormattivaClient(cfg Config, logger *zap.Logger) *NormattivaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRegisterBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NormattivaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// BaseURL returns the URN resolution endpoint in use.
func (c *NormattivaClient) BaseURL() string {
	return c.cfg.BaseURL
}

// SourceURL derives the register URL for a reference.
func (c *NormattivaClient) SourceURL(ref norm.ActReference) string {
	if ref.Act.SourceURL != "" {
		return ref.Act.SourceURL
	}
	return c.cfg.BaseURL + norm.BuildURN(ref)
}

// FetchStructure loads the act page and builds its structural tree.
// Returns the tree and the resolved source URL.
func (c *NormattivaClient) FetchStructure(ctx context.Context, ref norm.ActReference) (norm.StructuralTree, string, error) {
	sourceURL := c.SourceURL(ref)
	doc, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return norm.StructuralTree{}, "", err
	}
	return buildTree(doc), sourceURL, nil
}

// ExtractArticleText loads the act page and extracts the text of the
// referenced article. An empty article designator extracts nothing.
func (c *NormattivaClient) ExtractArticleText(ctx context.Context, ref norm.ActReference) (string, error) {
	if ref.WholeAct() {
		return "", nil
	}
	doc, err := c.fetch(ctx, c.SourceURL(ref))
	if err != nil {
		return "", err
	}
	text := extractArticle(doc, ref.Article)
	if text == "" {
		return "", shared.NewDomainError(shared.CodeExtractionFailed,
			fmt.Sprintf("article %s not found in the act text", ref.Article))
	}
	return text, nil
}

// fetch GETs a register page and parses it. Network and status
// failures surface as EXTRACTION_FAILED.
func (c *NormattivaClient) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeExtractionFailed, "invalid register URL: "+err.Error())
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("register fetch failed", zap.String("url", url), zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeExtractionFailed, "register fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, shared.NewDomainError(shared.CodeExtractionFailed,
			fmt.Sprintf("register returned status %d", resp.StatusCode))
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeExtractionFailed, "register page unparseable: "+err.Error())
	}
	return doc, nil
}

var (
	articleLabelPattern  = regexp.MustCompile(`(?i)^art(?:icolo|\.)?\s+([0-9]+(?:[.-][a-z]+)?)\b`)
	divisionLabelPattern = regexp.MustCompile(`(?i)^(libro|parte|titolo|capo|book|part|title|chapter)\s+(.+)$`)
)

var divisionKinds = map[string]norm.NodeKind{
	"libro":   norm.KindBook,
	"book":    norm.KindBook,
	"parte":   norm.KindPart,
	"part":    norm.KindPart,
	"titolo":  norm.KindTitle,
	"title":   norm.KindTitle,
	"capo":    norm.KindChapter,
	"chapter": norm.KindChapter,
}

// buildTree walks the parsed page in document order and folds heading
// and article markers into a two-level structural tree: divisions with
// their articles. Acts without recognizable divisions get a flat list
// of articles.
func buildTree(doc *html.Node) norm.StructuralTree {
	var tree norm.StructuralTree
	currentDivision := -1

	appendArticle := func(label string) {
		node := norm.TreeNode{Kind: norm.KindArticle, Label: label}
		if currentDivision >= 0 {
			tree.Nodes[currentDivision].Children = append(tree.Nodes[currentDivision].Children, node)
			return
		}
		tree.Nodes = append(tree.Nodes, node)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			text := strings.TrimSpace(nodeText(n))
			switch n.Data {
			case "h1", "h2", "h3", "h4":
				if m := divisionLabelPattern.FindStringSubmatch(text); m != nil {
					tree.Nodes = append(tree.Nodes, norm.TreeNode{
						Kind:  divisionKinds[strings.ToLower(m[1])],
						Label: strings.TrimSpace(m[2]),
					})
					currentDivision = len(tree.Nodes) - 1
					return
				}
				if m := articleLabelPattern.FindStringSubmatch(text); m != nil {
					appendArticle(m[1])
					return
				}
			case "a", "span", "dt":
				if m := articleLabelPattern.FindStringSubmatch(text); m != nil {
					appendArticle(m[1])
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return tree
}

// extractArticle returns the text of the block whose marker names the
// requested article, or empty when no marker matches.
func extractArticle(doc *html.Node, article string) string {
	want := strings.ToLower(article)

	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if m := articleLabelPattern.FindStringSubmatch(strings.TrimSpace(nodeText(n))); m != nil {
				if strings.EqualFold(m[1], want) {
					found = blockFor(n)
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if found == nil {
		return ""
	}
	return collapseWhitespace(nodeText(found))
}

// blockFor climbs from an article marker to the enclosing block that
// carries the article body.
func blockFor(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Data {
		case "div", "section", "article", "li", "dd", "pre":
			return p
		}
	}
	return n
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
