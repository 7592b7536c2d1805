package acl_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ocingest/internal/acl"
)

func genRule() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("ROLE_ADMIN", "ROLE_USER_1", "ROLE_USER_2", "ROLE_GUEST", "ROLE_LECTURER"),
		gen.Bool(),
	).Map(func(values []interface{}) acl.Rule {
		perm := acl.PermissionRead
		if values[1].(bool) {
			perm = acl.PermissionWrite
		}
		return acl.Rule{Principal: values[0].(string), Permission: perm}
	})
}

func TestMergeIntoRemoteProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("merging twice equals merging once", prop.ForAll(
		func(existing, rules []acl.Rule) bool {
			remote := acl.BuildSeriesDocument(existing)
			once, _ := acl.MergeIntoRemote(remote, rules)
			twice, added := acl.MergeIntoRemote(once, rules)
			return added == 0 && acl.DocumentsEqual(once, twice)
		},
		gen.SliceOf(genRule()),
		gen.SliceOf(genRule()),
	))

	properties.Property("merge never removes existing entries", prop.ForAll(
		func(existing, rules []acl.Rule) bool {
			remote := acl.BuildSeriesDocument(existing)
			merged, added := acl.MergeIntoRemote(remote, rules)
			before := remote.Root().SelectElements("ace")
			after := merged.Root().SelectElements("ace")
			if len(after) != len(before)+added {
				return false
			}
			for i := range before {
				if !acl.Equal(before[i], after[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genRule()),
		gen.SliceOf(genRule()),
	))

	properties.Property("independently built documents are equal", prop.ForAll(
		func(rules []acl.Rule) bool {
			return acl.DocumentsEqual(acl.BuildEpisodeDocument(rules), acl.BuildEpisodeDocument(rules))
		},
		gen.SliceOf(genRule()),
	))

	properties.TestingRun(t)
}
