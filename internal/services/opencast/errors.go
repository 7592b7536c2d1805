package opencast

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxBodyExcerpt = 512

// RequestError describes a non-2xx response.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("opencast %s %s returned %d", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxBodyExcerpt {
		return text
	}
	cut := maxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
