package opencast

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ocingest/internal/services"
)

type meResponse struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Roles []string `json:"roles"`
}

// CurrentUser returns the username the configured credentials authenticate
// as. It is the cheapest authenticated endpoint and doubles as a reachability
// check.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: "/info/me.json"})
	if err != nil {
		return "", err
	}
	var me meResponse
	if err := json.Unmarshal(resp.body, &me); err != nil {
		return "", services.Wrap(services.ErrValidation, "opencast", "current user", "decode response", err)
	}
	name := strings.TrimSpace(me.User.Username)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "opencast", "current user", "response has no username", nil)
	}
	return name, nil
}
