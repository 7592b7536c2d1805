package acl

import (
	"strings"
)

// Permission is an action a principal is allowed to perform.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Rule grants one permission to one principal.
type Rule struct {
	Principal  string
	Permission Permission
}

// UserRolePrefix is prepended to user ids to form their principal.
const UserRolePrefix = "ROLE_USER_"

// Keys names the metadata entries holding role lists.
type Keys struct {
	ReadRoles  string
	WriteRoles string
	UserIDs    string
}

var (
	EpisodeKeys = Keys{
		ReadRoles:  "opencast-acl-read-roles",
		WriteRoles: "opencast-acl-write-roles",
		UserIDs:    "opencast-acl-user-id",
	}
	SeriesKeys = Keys{
		ReadRoles:  "opencast-series-acl-read-roles",
		WriteRoles: "opencast-series-acl-write-roles",
		UserIDs:    "opencast-series-acl-user-id",
	}
)

// Metadata looks up session metadata by case-insensitive key.
type Metadata interface {
	MetadataValue(key string) (string, bool)
}

// ParseRoles collects rules in a fixed order: the operator's default read
// then write principals, the session's read then write principals, and
// finally a read and a write rule for every user id in the session.
// Lists are comma-delimited; blank entries are dropped.
func ParseRoles(meta Metadata, keys Keys, defaultRead, defaultWrite string) []Rule {
	var rules []Rule
	add := func(list string, perm Permission, prefix string) {
		for _, entry := range splitList(list) {
			rules = append(rules, Rule{Principal: prefix + entry, Permission: perm})
		}
	}
	lookup := func(key string) string {
		if meta == nil || key == "" {
			return ""
		}
		value, _ := meta.MetadataValue(key)
		return value
	}

	add(defaultRead, PermissionRead, "")
	add(defaultWrite, PermissionWrite, "")
	add(lookup(keys.ReadRoles), PermissionRead, "")
	add(lookup(keys.WriteRoles), PermissionWrite, "")
	for _, id := range splitList(lookup(keys.UserIDs)) {
		principal := UserRolePrefix + id
		rules = append(rules,
			Rule{Principal: principal, Permission: PermissionRead},
			Rule{Principal: principal, Permission: PermissionWrite},
		)
	}
	return rules
}

func splitList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
