// Package portal fetches tender metadata and attachments from the Mercado
// Público procurement portal, reading through the filesystem cache.
package portal

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tenderscope/tenderscope/internal/cache"
	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
)

// Client scrapes the public tender detail pages. The portal serves ASP.NET
// markup with stable element ids, so extraction is targeted rather than a
// full DOM walk.
type Client struct {
	baseURL    string
	http       *http.Client
	cache      *cache.Manager
	htmlMaxAge time.Duration
	maxDocs    int
	log        *logging.Logger
}

// NewClient builds a portal client from config.
func NewClient(cfg model.PortalConfig, htmlMaxAge time.Duration, c *cache.Manager, log *logging.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxDocs := cfg.MaxDocuments
	if maxDocs <= 0 {
		maxDocs = 3
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		cache:      c,
		htmlMaxAge: htmlMaxAge,
		maxDocs:    maxDocs,
		log:        log,
	}
}

func (c *Client) detailURL(tenderID string) string {
	return c.baseURL + "/Procurement/Modules/RFB/DetailsAcquisition.aspx?idlicitacion=" + tenderID
}

// fetchHTML reads a page through the HTML cache.
func (c *Client) fetchHTML(ctx context.Context, url string) (string, error) {
	if page, ok := c.cache.GetHTML(url, c.htmlMaxAge); ok {
		c.log.Debugf("html_cache_hit url=%s", url)
		return page, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create portal request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	page := string(body)
	if err := c.cache.SetHTML(url, page); err != nil {
		c.log.Warnf("html_cache_write_failed url=%s error=%v", url, err)
	}
	return page, nil
}

// FetchTender retrieves the tender detail page and extracts its metadata.
func (c *Client) FetchTender(ctx context.Context, tenderID string) (model.TenderInfo, error) {
	page, err := c.fetchHTML(ctx, c.detailURL(tenderID))
	if err != nil {
		return model.TenderInfo{}, err
	}

	info := model.TenderInfo{
		TenderID:     tenderID,
		Name:         elementText(page, "lblNombreLicitacion"),
		Organization: elementText(page, "lblNombreOrganismo"),
		PublishDate:  elementText(page, "lblFicha3Publicacion"),
		CloseDate:    elementText(page, "lblFicha3Cierre"),
		Bases:        elementText(page, "lblFicha2Descripcion"),
	}
	if info.Name == "" {
		return model.TenderInfo{}, fmt.Errorf("tender %s: detail page missing name field", tenderID)
	}
	return info, nil
}

var attachmentRe = regexp.MustCompile(`(?is)href="([^"]*Attachment[^"]*)"[^>]*>([^<]+)<`)

// ListDocuments extracts the attachment rows from the tender detail page,
// capped at the configured maximum.
func (c *Client) ListDocuments(ctx context.Context, tenderID string) ([]model.TenderDocument, error) {
	page, err := c.fetchHTML(ctx, c.detailURL(tenderID))
	if err != nil {
		return nil, err
	}

	var docs []model.TenderDocument
	for _, m := range attachmentRe.FindAllStringSubmatch(page, -1) {
		if len(docs) == c.maxDocs {
			break
		}
		url := html.UnescapeString(m[1])
		if strings.HasPrefix(url, "/") {
			url = c.baseURL + url
		}
		docs = append(docs, model.TenderDocument{
			RowID: len(docs),
			Name:  strings.TrimSpace(html.UnescapeString(m[2])),
			URL:   url,
		})
	}
	return docs, nil
}

// DownloadDocument fetches one attachment through the document cache and
// returns its bytes with the detected extension.
func (c *Client) DownloadDocument(ctx context.Context, tenderID string, doc model.TenderDocument) ([]byte, string, error) {
	if content, ext, ok := c.cache.GetDocument(tenderID, doc.RowID); ok {
		c.log.Debugf("doc_cache_hit tender=%s row=%d", tenderID, doc.RowID)
		return content, ext, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", doc.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %s", doc.URL, resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read attachment: %w", err)
	}

	ext := DetectExtension(content)
	if err := c.cache.SetDocument(tenderID, doc.RowID, content, ext); err != nil {
		c.log.Warnf("doc_cache_write_failed tender=%s row=%d error=%v", tenderID, doc.RowID, err)
	}
	return content, ext, nil
}

// elementText pulls the inner text of the element carrying the given
// ASP.NET id. The markup is machine generated, so a targeted scan is
// enough.
func elementText(page, id string) string {
	marker := `id="` + id + `"`
	idx := strings.Index(page, marker)
	if idx < 0 {
		return ""
	}
	rest := page[idx+len(marker):]
	open := strings.IndexByte(rest, '>')
	if open < 0 {
		return ""
	}
	rest = rest[open+1:]
	end := strings.IndexByte(rest, '<')
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(rest[:end]))
}
