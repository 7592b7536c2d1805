package opencast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/beevik/etree"

	"ocingest/internal/services"
)

// Series is one entry of the series catalog.
type Series struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
}

type seriesCatalog struct {
	Series []Series `json:"series"`
}

// FetchSeriesCatalog lists every series id and title. A response that is
// not valid catalog JSON is reported with services.ErrValidation.
func (c *Client) FetchSeriesCatalog(ctx context.Context) ([]Series, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: "/series/allSeriesIdTitle.json"})
	if err != nil {
		return nil, err
	}
	var catalog seriesCatalog
	if err := json.Unmarshal(resp.body, &catalog); err != nil {
		return nil, services.Wrap(services.ErrValidation, "opencast", "series catalog", "decode", err)
	}
	return catalog.Series, nil
}

// SeriesExists reports whether id appears in the catalog.
func SeriesExists(catalog []Series, id string) bool {
	for _, s := range catalog {
		if s.Identifier == id {
			return true
		}
	}
	return false
}

// FetchSeriesACL downloads a series ACL. A missing series is reported with
// services.ErrNotFound.
func (c *Client) FetchSeriesACL(ctx context.Context, id string) (*etree.Document, error) {
	path := "/series/" + url.PathEscape(id) + "/acl.xml"
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, allow: []int{http.StatusNotFound}})
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "opencast", "series acl", id, errors.New("series does not exist"))
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(resp.body); err != nil || doc.Root() == nil {
		if err == nil {
			err = errors.New("empty document")
		}
		return nil, services.Wrap(services.ErrExternalTool, "opencast", "series acl", id, err)
	}
	return doc, nil
}

// CreateSeries creates a series from its Dublin Core catalog and ACL.
func (c *Client) CreateSeries(ctx context.Context, dublinCore, acl []byte) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/series/",
		form: url.Values{
			"series":   {string(dublinCore)},
			"acl":      {string(acl)},
			"override": {"false"},
		},
	})
	return err
}

// UpdateSeriesACL replaces a series ACL.
func (c *Client) UpdateSeriesACL(ctx context.Context, id string, acl []byte) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/series/" + url.PathEscape(id) + "/accesscontrol",
		form: url.Values{
			"acl":      {string(acl)},
			"override": {"false"},
		},
	})
	return err
}
