package acl

import (
	"strings"

	"github.com/beevik/etree"
)

// Equal reports whether two elements are structurally equal: same local tag
// name, same trimmed direct text, and pairwise equal child elements in the
// same order. Attributes and namespace prefixes are ignored.
func Equal(a, b *etree.Element) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	if strings.TrimSpace(a.Text()) != strings.TrimSpace(b.Text()) {
		return false
	}
	ac, bc := a.ChildElements(), b.ChildElements()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

// DocumentsEqual compares the root elements of two documents.
func DocumentsEqual(a, b *etree.Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return Equal(a.Root(), b.Root())
}

// MergeIntoRemote returns a copy of remote with an ace appended for every rule
// that is not already present. A rule is present when a structurally equal
// ace exists in remote or was accepted earlier in the same merge. The second
// return value is the number of appended entries; remote is not modified. A
// nil remote is treated as an empty document.
func MergeIntoRemote(remote *etree.Document, rules []Rule) (*etree.Document, int) {
	if remote == nil {
		remote = etree.NewDocument()
	}
	merged := remote.Copy()
	root := merged.Root()
	if root == nil {
		root = merged.CreateElement("acl")
		root.CreateAttr("xmlns", SecurityNamespace)
	}

	existing := aceElements(root)
	var accepted []*etree.Element
	for _, rule := range rules {
		candidate := seriesEntry(rule, root.Space)
		if containsEqual(existing, candidate) || containsEqual(accepted, candidate) {
			continue
		}
		accepted = append(accepted, candidate)
	}

	for _, el := range accepted {
		root.AddChild(el)
	}
	if len(accepted) > 0 {
		merged.Indent(2)
	}
	return merged, len(accepted)
}

func aceElements(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag == "ace" {
			out = append(out, child)
		}
	}
	return out
}

func containsEqual(set []*etree.Element, candidate *etree.Element) bool {
	for _, el := range set {
		if Equal(el, candidate) {
			return true
		}
	}
	return false
}
