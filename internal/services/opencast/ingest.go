package opencast

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"ocingest/internal/services"
)

// MediaPackage is the package handle returned by every ingest step. The XML
// is sent back verbatim on the next step.
type MediaPackage struct {
	ID  string
	XML string
}

// IngestResult identifies the workflow started by an ingest.
type IngestResult struct {
	WorkflowID     string
	MediaPackageID string
	State          string
}

func parseMediaPackage(op string, body []byte) (MediaPackage, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return MediaPackage{}, services.Wrap(services.ErrExternalTool, "opencast", op, "parse media package", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "mediapackage" {
		return MediaPackage{}, services.Wrap(services.ErrExternalTool, "opencast", op, "response is not a media package", nil)
	}
	return MediaPackage{ID: root.SelectAttrValue("id", ""), XML: string(body)}, nil
}

// CreateMediaPackage starts a package. A non-empty id is used as the package
// identifier; otherwise Opencast assigns one.
func (c *Client) CreateMediaPackage(ctx context.Context, id string) (MediaPackage, error) {
	req := request{method: http.MethodGet, path: "/ingest/createMediaPackage"}
	if id = strings.TrimSpace(id); id != "" {
		req = request{method: http.MethodPut, path: "/ingest/createMediaPackageWithID/" + url.PathEscape(id)}
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return MediaPackage{}, err
	}
	return parseMediaPackage("create media package", resp.body)
}

// AddPartialTrack uploads a track starting startTimeMs into the session.
func (c *Client) AddPartialTrack(ctx context.Context, mp MediaPackage, flavor string, startTimeMs int64, path string) (MediaPackage, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/ingest/addPartialTrack",
		form: url.Values{
			"flavor":       {flavor},
			"startTime":    {strconv.FormatInt(startTimeMs, 10)},
			"mediaPackage": {mp.XML},
		},
		files: []filePart{{field: "BODY", path: path}},
		long:  true,
	})
	if err != nil {
		return MediaPackage{}, err
	}
	return parseMediaPackage("add partial track", resp.body)
}

// AddDCCatalog adds an episode Dublin Core catalog.
func (c *Client) AddDCCatalog(ctx context.Context, mp MediaPackage, dublinCore []byte) (MediaPackage, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/ingest/addDCCatalog",
		form: url.Values{
			"mediaPackage": {mp.XML},
			"dublinCore":   {string(dublinCore)},
		},
	})
	if err != nil {
		return MediaPackage{}, err
	}
	return parseMediaPackage("add dublin core", resp.body)
}

// AddCatalog uploads a catalog file under flavor.
func (c *Client) AddCatalog(ctx context.Context, mp MediaPackage, flavor, path string) (MediaPackage, error) {
	return c.addFile(ctx, "/ingest/addCatalog", "add catalog", mp, flavor, path)
}

// AddAttachment uploads an attachment file under flavor.
func (c *Client) AddAttachment(ctx context.Context, mp MediaPackage, flavor, path string) (MediaPackage, error) {
	return c.addFile(ctx, "/ingest/addAttachment", "add attachment", mp, flavor, path)
}

func (c *Client) addFile(ctx context.Context, endpoint, op string, mp MediaPackage, flavor, path string) (MediaPackage, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   endpoint,
		form: url.Values{
			"flavor":       {flavor},
			"mediaPackage": {mp.XML},
		},
		files: []filePart{{field: "BODY", path: path}},
		long:  true,
	})
	if err != nil {
		return MediaPackage{}, err
	}
	return parseMediaPackage(op, resp.body)
}

// Ingest submits the package to workflow.
func (c *Client) Ingest(ctx context.Context, mp MediaPackage, workflow string) (IngestResult, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/ingest/ingest/" + url.PathEscape(workflow),
		form:   url.Values{"mediaPackage": {mp.XML}},
		long:   true,
	})
	if err != nil {
		return IngestResult{}, err
	}
	instance, err := parseWorkflow("ingest", resp.body)
	if err != nil {
		return IngestResult{}, err
	}
	if instance.MediaPackageID == "" {
		instance.MediaPackageID = mp.ID
	}
	return instance, nil
}

// EventExists reports whether an event with id is already known.
func (c *Client) EventExists(ctx context.Context, id string) (bool, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/events/" + url.PathEscape(id),
		allow:  []int{http.StatusNotFound},
	})
	if err != nil {
		return false, err
	}
	return resp.status != http.StatusNotFound, nil
}

func parseWorkflow(op string, body []byte) (IngestResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return IngestResult{}, services.Wrap(services.ErrExternalTool, "opencast", op, "parse workflow", err)
	}
	wf := findElement(doc.Root(), "workflow")
	if wf == nil {
		return IngestResult{}, services.Wrap(services.ErrExternalTool, "opencast", op, "response has no workflow", nil)
	}
	result := IngestResult{
		WorkflowID: wf.SelectAttrValue("id", ""),
		State:      wf.SelectAttrValue("state", ""),
	}
	if result.WorkflowID == "" {
		return IngestResult{}, services.Wrap(services.ErrExternalTool, "opencast", op, "workflow has no id", nil)
	}
	if mp := findElement(wf, "mediapackage"); mp != nil {
		result.MediaPackageID = mp.SelectAttrValue("id", "")
	}
	return result, nil
}

// findElement returns the first element named tag, in any namespace, in a
// depth-first walk starting at el.
func findElement(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func (r IngestResult) String() string {
	return fmt.Sprintf("workflow %s (media package %s)", r.WorkflowID, r.MediaPackageID)
}
