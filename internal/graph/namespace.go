package graph

import "strings"

// globalEntityTypes lists the entity kinds spec §4.1 declares global and
// never prefixed: account identifiers (by username) and path identifiers (by
// full-path string). Market is included per the Data Transformer's simple
// rules (§4.7 expansion): trading pairs are cross-network, same rationale
// as accounts and paths.
var globalEntityTypes = map[string]bool{
	"Account": true,
	"Path":    true,
	"Market":  true,
}

// Namespace rewrites a single mutation in isolation, per the rule in spec
// §4.1: every non-global identifier field gets prefix prepended; a blank
// node id is prefixed iff the entity it targets is non-global. Only the
// mutation's own "uid" is known here, so a cross-entity edge field (e.g.
// ContractFile.contract pointing at a Contract's blank id) is treated as
// non-global and prefixed, which is wrong whenever that field targets a
// global entity such as an Account or a Path. Callers
// writing more than one mutation in the same transaction must use
// NamespaceBatch instead, which resolves every blank id consistently across
// the whole batch before rewriting any of them.
//
// The mutation's declared entity kind lives under the "_kind" key (set by
// the transformer before handing mutations to Write); it is stripped from
// the namespaced copy since it is bookkeeping for Namespace itself, not a
// field the store should see.
func Namespace(prefix string, m Mutation) Mutation {
	kind, _ := m["_kind"].(string)
	global := map[string]bool{}
	if uid, ok := m["uid"].(string); ok {
		global[uid] = globalEntityTypes[kind]
	}
	return namespaceMutation(prefix, m, global)
}

// NamespaceBatch rewrites every mutation in a transaction consistently. A
// blank node id created as one mutation's own "uid" is very often also
// referenced by a sibling mutation's edge field within the same
// transaction: ContractFile.contract, Contract.purchaser/storageAccount/
// targetAccount, Path.owner, and every entity's parentPath all carry another
// entity's blank id, not their own. Namespace alone knows only the
// mutation's own uid, so an edge field pointing at a global entity would be
// prefixed while that entity's own uid is not, breaking the blank-node link
// the store resolves within the transaction (spec §4.7). NamespaceBatch
// avoids this by first collecting every mutation's own (uid -> globalness) pairs,
// then rewriting *every* "_:"-prefixed string value anywhere in the batch
// against that single map, regardless of which field holds it.
func NamespaceBatch(prefix string, mutations []Mutation) []Mutation {
	global := make(map[string]bool, len(mutations))
	for _, m := range mutations {
		uid, ok := m["uid"].(string)
		if !ok {
			continue
		}
		kind, _ := m["_kind"].(string)
		global[uid] = globalEntityTypes[kind]
	}

	out := make([]Mutation, len(mutations))
	for i, m := range mutations {
		out[i] = namespaceMutation(prefix, m, global)
	}
	return out
}

// namespaceMutation rewrites m's fields against a precomputed uid ->
// globalness map. Literal identifier fields (username/account, fullPath/
// path) are global text, not blank-node references, and are always left
// untouched.
func namespaceMutation(prefix string, m Mutation, global map[string]bool) Mutation {
	out := make(Mutation, len(m))
	for k, v := range m {
		if k == "_kind" {
			continue
		}
		switch k {
		case "username", "account", "fullPath", "path":
			if s, ok := v.(string); ok {
				out[k] = s
				continue
			}
		}
		if s, ok := v.(string); ok && strings.HasPrefix(s, "_:") {
			out[k] = namespaceUID(prefix, s, global)
			continue
		}
		out[k] = v
	}
	return out
}

// namespaceUID prefixes a blank/temporary node identifier ("_:name") iff the
// target entity is non-global, leaving real uids ("0x...") untouched since
// those are assigned by the store itself. An id absent from global is
// treated as non-global: every blank id this pipeline produces is created
// via Accumulator.Upsert and so always has an owning mutation in the same
// batch, but defaulting to "prefix it" is the safe choice if that
// invariant is ever violated, since an unprefixed non-global id would
// collide across networks.
func namespaceUID(prefix, uid string, global map[string]bool) string {
	if !strings.HasPrefix(uid, "_:") {
		return uid
	}
	if global[uid] {
		return uid
	}
	name := strings.TrimPrefix(uid, "_:")
	if strings.HasPrefix(name, prefix) {
		return uid
	}
	return "_:" + prefix + name
}

// IsGlobalEntity reports whether kind is one of the entity classes spec
// §4.1 declares global (never namespaced).
func IsGlobalEntity(kind string) bool { return globalEntityTypes[kind] }
