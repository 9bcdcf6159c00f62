package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

// ErrNotFound doubles as book.ErrNotFound so callers can match lookup
// misses without importing this package.
var ErrNotFound = book.ErrNotFound

var yearRegex = regexp.MustCompile(`\d{4}`)

// Client talks to the OpenLibrary REST API.
type Client struct {
	baseURL   string
	coversURL string
	http      *http.Client
	logger    core.Logger
}

var _ book.MetadataFinder = (*Client)(nil)

func NewClient(logger core.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(core.Conf.OpenLibrary.BaseURL, "/"),
		coversURL: "https://covers.openlibrary.org",
		http:      &http.Client{Timeout: core.Conf.OpenLibrary.Timeout},
		logger:    logger,
	}
}

// API payloads

type (
	searchResponse struct {
		Docs []searchDoc `json:"docs"`
	}
	searchDoc struct {
		Key              string   `json:"key"` // "/works/OL...W"
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		ISBN             []string `json:"isbn"`
		CoverID          int      `json:"cover_i"`
		FirstPublishYear int      `json:"first_publish_year"`
		Subject          []string `json:"subject"`
	}

	edition struct {
		Title       string      `json:"title"`
		PublishDate string      `json:"publish_date"`
		Covers      []int       `json:"covers"`
		Works       []keyRef    `json:"works"`
		Authors     []keyRef    `json:"authors"`
		Description interface{} `json:"description"`
	}
	keyRef struct {
		Key string `json:"key"`
	}

	work struct {
		Subjects    []string    `json:"subjects"`
		Description interface{} `json:"description"`
	}

	workDetail struct {
		Title       string      `json:"title"`
		Subjects    []string    `json:"subjects"`
		Description interface{} `json:"description"`
		Covers      []int       `json:"covers"`
		Authors     []struct {
			Author keyRef `json:"author"`
		} `json:"authors"`
	}

	author struct {
		Name string `json:"name"`
	}
)

// FindByISBN resolves an edition and its work/author records.
func (c *Client) FindByISBN(ctx context.Context, isbn string) (book.Metadata, error) {
	var ed edition
	if err := c.get(ctx, fmt.Sprintf("/isbn/%s.json", url.PathEscape(isbn)), &ed); err != nil {
		return book.Metadata{}, err
	}

	meta := book.Metadata{
		Title:           ed.Title,
		ISBN:            isbn,
		Description:     descriptionText(ed.Description),
		CoverURL:        c.isbnCoverURL(isbn, ed.Covers),
		PublicationYear: parseYear(ed.PublishDate),
	}

	if len(ed.Works) > 0 {
		meta.OpenLibraryID = strings.TrimPrefix(ed.Works[0].Key, "/works/")
		var wk work
		if err := c.get(ctx, ed.Works[0].Key+".json", &wk); err == nil {
			meta.Subjects = wk.Subjects
			if meta.Description == "" {
				meta.Description = descriptionText(wk.Description)
			}
		}
	}
	if len(ed.Authors) > 0 {
		var au author
		if err := c.get(ctx, ed.Authors[0].Key+".json", &au); err == nil {
			meta.Author = au.Name
		}
	}
	return meta, nil
}

// Search returns the best title/author match.
func (c *Client) Search(ctx context.Context, title, auth string) (book.Metadata, error) {
	params := url.Values{"limit": {"1"}}
	if title != "" {
		params.Set("title", title)
	}
	if auth != "" {
		params.Set("author", auth)
	}

	var res searchResponse
	if err := c.get(ctx, "/search.json?"+params.Encode(), &res); err != nil {
		return book.Metadata{}, err
	}
	if len(res.Docs) == 0 {
		return book.Metadata{}, ErrNotFound
	}
	return docMetadata(c.coversURL, res.Docs[0]), nil
}

// FindByOLID resolves a work record by its OpenLibrary work id ("OL...W").
func (c *Client) FindByOLID(ctx context.Context, olid string) (book.Metadata, error) {
	var wk workDetail
	if err := c.get(ctx, fmt.Sprintf("/works/%s.json", url.PathEscape(olid)), &wk); err != nil {
		return book.Metadata{}, err
	}

	meta := book.Metadata{
		Title:         wk.Title,
		OpenLibraryID: olid,
		Description:   descriptionText(wk.Description),
		Subjects:      wk.Subjects,
	}
	if len(wk.Covers) > 0 {
		meta.CoverURL = fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, wk.Covers[0])
	}
	if len(wk.Authors) > 0 {
		var au author
		if err := c.get(ctx, wk.Authors[0].Author.Key+".json", &au); err == nil {
			meta.Author = au.Name
		}
	}
	return meta, nil
}

// SearchWorks runs a free-form catalog search and returns up to limit matches.
func (c *Client) SearchWorks(ctx context.Context, query string, limit int) ([]book.Metadata, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{"q": {query}, "limit": {fmt.Sprintf("%d", limit)}}

	var res searchResponse
	if err := c.get(ctx, "/search.json?"+params.Encode(), &res); err != nil {
		return nil, err
	}

	metas := make([]book.Metadata, 0, len(res.Docs))
	for _, doc := range res.Docs {
		metas = append(metas, docMetadata(c.coversURL, doc))
	}
	return metas, nil
}

func docMetadata(coversURL string, doc searchDoc) book.Metadata {
	meta := book.Metadata{
		Title:           doc.Title,
		OpenLibraryID:   strings.TrimPrefix(doc.Key, "/works/"),
		PublicationYear: doc.FirstPublishYear,
		Subjects:        doc.Subject,
	}
	if len(doc.AuthorName) > 0 {
		meta.Author = doc.AuthorName[0]
	}
	if len(doc.ISBN) > 0 {
		meta.ISBN = doc.ISBN[0]
	}
	if doc.CoverID > 0 {
		meta.CoverURL = fmt.Sprintf("%s/b/id/%d-L.jpg", coversURL, doc.CoverID)
	}
	return meta
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling OpenLibrary")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("OpenLibrary returned %d for %s", res.StatusCode, path)
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}

func (c *Client) isbnCoverURL(isbn string, covers []int) string {
	if len(covers) > 0 {
		return fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, covers[0])
	}
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, isbn)
}

// descriptionText handles both plain string and {"type": ..., "value": ...} forms.
func descriptionText(desc interface{}) string {
	switch d := desc.(type) {
	case string:
		return d
	case map[string]interface{}:
		if val, ok := d["value"].(string); ok {
			return val
		}
	}
	return ""
}

func parseYear(publishDate string) int {
	if match := yearRegex.FindString(publishDate); match != "" {
		var year int
		_, _ = fmt.Sscanf(match, "%d", &year)
		return year
	}
	return 0
}
