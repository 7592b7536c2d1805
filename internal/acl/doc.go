// Package acl builds the access-control documents attached to an episode and
// its series, and merges new rules into a series ACL fetched from Opencast.
//
// Episode ACLs are XACML policies; series ACLs use Opencast's compact
// security namespace. Both carry the principal and permission in child text
// nodes only, so Equal compares element names, text, and children while
// ignoring attributes.
package acl
