package dublincore

import (
	"fmt"

	"github.com/beevik/etree"
)

const (
	catalogNamespace = "http://www.opencastproject.org/xsd/1.0/dublincore/"
	termsNamespace   = "http://purl.org/dc/terms/"

	// EpisodeFlavor is the catalog flavor of the episode catalog.
	EpisodeFlavor = "dublincore/episode"
)

// Entry is one resolved term.
type Entry struct {
	Term  string
	Value string
}

// Catalog is an ordered set of resolved terms. Absent terms are not stored.
type Catalog struct {
	entries []Entry
}

// Resolve evaluates fields against in, in declaration order.
func Resolve(fields []Field, in Inputs) Catalog {
	var c Catalog
	for _, f := range fields {
		value := in.value(f.Key)
		if value == "" && f.Fallback != nil {
			value = f.Fallback(in)
		}
		c.Set(f.Term, value)
	}
	return c
}

// Get returns the value of term.
func (c Catalog) Get(term string) (string, bool) {
	for _, e := range c.entries {
		if e.Term == term {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces the value of term, appending it when absent. An empty value
// removes the term.
func (c *Catalog) Set(term, value string) {
	for i, e := range c.entries {
		if e.Term != term {
			continue
		}
		if value == "" {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
		c.entries[i].Value = value
		return
	}
	if value != "" {
		c.entries = append(c.entries, Entry{Term: term, Value: value})
	}
}

// Entries returns the resolved terms in order.
func (c Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Render builds the catalog document.
func (c Catalog) Render() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("dublincore")
	root.CreateAttr("xmlns", catalogNamespace)
	root.CreateAttr("xmlns:dcterms", termsNamespace)
	for _, e := range c.entries {
		root.CreateElement("dcterms:" + e.Term).SetText(e.Value)
	}
	doc.Indent(2)
	return doc
}

// Encode renders and serializes the catalog.
func (c Catalog) Encode() ([]byte, error) {
	data, err := c.Render().WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("encode dublin core: %w", err)
	}
	return data, nil
}
