package acl

import (
	"fmt"

	"github.com/beevik/etree"
)

const (
	xacmlNamespace  = "urn:oasis:names:tc:xacml:2.0:policy:schema:os"
	permitOverrides = "urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:permit-overrides"
	stringEqual     = "urn:oasis:names:tc:xacml:1.0:function:string-equal"
	stringIsIn      = "urn:oasis:names:tc:xacml:1.0:function:string-is-in"
	actionID        = "urn:oasis:names:tc:xacml:1.0:action:action-id"
	subjectRole     = "urn:oasis:names:tc:xacml:2.0:subject:role"
	xsdString       = "http://www.w3.org/2001/XMLSchema#string"

	// SecurityNamespace is the namespace of Opencast series ACLs.
	SecurityNamespace = "http://org.opencastproject.security"
	// EpisodePolicyID identifies the media package policy.
	EpisodePolicyID = "mediapackage-1"
	// EpisodeFlavor is the attachment flavor of the episode policy.
	EpisodeFlavor = "security/xacml+episode"
)

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

// BuildEpisodeDocument renders rules as an XACML policy, one Rule element per
// rule in order. Duplicates are not removed.
func BuildEpisodeDocument(rules []Rule) *etree.Document {
	doc := newDocument()
	policy := doc.CreateElement("Policy")
	policy.CreateAttr("PolicyId", EpisodePolicyID)
	policy.CreateAttr("RuleCombiningAlgId", permitOverrides)
	policy.CreateAttr("Version", "2.0")
	policy.CreateAttr("xmlns", xacmlNamespace)

	for _, rule := range rules {
		el := policy.CreateElement("Rule")
		el.CreateAttr("RuleId", fmt.Sprintf("%s_%s_Permit", rule.Principal, rule.Permission))
		el.CreateAttr("Effect", "Permit")

		match := el.CreateElement("Target").CreateElement("Actions").CreateElement("Action").CreateElement("ActionMatch")
		match.CreateAttr("MatchId", stringEqual)
		value := match.CreateElement("AttributeValue")
		value.CreateAttr("DataType", xsdString)
		value.SetText(string(rule.Permission))
		designator := match.CreateElement("ActionAttributeDesignator")
		designator.CreateAttr("AttributeId", actionID)
		designator.CreateAttr("DataType", xsdString)

		apply := el.CreateElement("Condition").CreateElement("Apply")
		apply.CreateAttr("FunctionId", stringIsIn)
		principal := apply.CreateElement("AttributeValue")
		principal.CreateAttr("DataType", xsdString)
		principal.SetText(rule.Principal)
		subject := apply.CreateElement("SubjectAttributeDesignator")
		subject.CreateAttr("AttributeId", subjectRole)
		subject.CreateAttr("DataType", xsdString)
	}
	doc.Indent(2)
	return doc
}

// BuildSeriesDocument renders rules as an Opencast series ACL.
func BuildSeriesDocument(rules []Rule) *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("acl")
	root.CreateAttr("xmlns", SecurityNamespace)
	for _, rule := range rules {
		root.AddChild(seriesEntry(rule, ""))
	}
	doc.Indent(2)
	return doc
}

// seriesEntry renders one ace element, using space as the namespace prefix.
func seriesEntry(rule Rule, space string) *etree.Element {
	ace := etree.NewElement("ace")
	ace.Space = space
	for _, child := range [][2]string{
		{"action", string(rule.Permission)},
		{"allow", "true"},
		{"role", rule.Principal},
	} {
		el := ace.CreateElement(child[0])
		el.Space = space
		el.SetText(child[1])
	}
	return ace
}

// Parse reads an ACL document.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse acl: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse acl: document has no root element")
	}
	return doc, nil
}

// Encode serializes doc.
func Encode(doc *etree.Document) ([]byte, error) {
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("encode acl: %w", err)
	}
	return data, nil
}
