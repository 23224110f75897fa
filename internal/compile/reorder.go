package compile

import "github.com/tract-dev/tract/internal/types"

// ReorderSafetyCheck flags hazards in a caller-supplied commit order
// before it is used for a reordering compile (spec.md §4.8: "These are
// warnings, not errors — the caller decides"). commits is the ancestor
// set the order is a permutation of; order is the requested sequence of
// commit hashes.
func ReorderSafetyCheck(commits []*types.Commit, order []string) []types.ReorderWarning {
	byHash := make(map[string]*types.Commit, len(commits))
	for _, c := range commits {
		byHash[c.CommitHash] = c
	}
	position := make(map[string]int, len(order))
	for i, h := range order {
		position[h] = i
	}

	var warnings []types.ReorderWarning

	for _, h := range order {
		c, ok := byHash[h]
		if !ok || c.Operation != types.OpEdit || c.EditTarget == nil {
			continue
		}
		targetPos, targetKnown := position[*c.EditTarget]
		if targetKnown && position[h] < targetPos {
			warnings = append(warnings, types.ReorderWarning{
				Kind:       types.WarnEditBeforeTarget,
				CommitHash: h,
				Detail:     "edit placed before the commit it targets: " + *c.EditTarget,
			})
		}
	}

	for _, h := range order {
		c, ok := byHash[h]
		if !ok || c.ParentHash == nil {
			continue
		}
		parentPos, parentKnown := position[*c.ParentHash]
		if !parentKnown {
			continue
		}
		if parentPos > position[h] {
			warnings = append(warnings, types.ReorderWarning{
				Kind:       types.WarnResponseChainBreak,
				CommitHash: h,
				Detail:     "commit placed before its parent: " + *c.ParentHash,
			})
			continue
		}
		if isResponseTo(c, byHash[*c.ParentHash]) && parentPos != position[h]-1 {
			warnings = append(warnings, types.ReorderWarning{
				Kind:       types.WarnResponseChainBreak,
				CommitHash: h,
				Detail:     "response separated from the turn it answers",
			})
		}
	}

	return warnings
}

// isResponseTo reports whether child is the direct dialogue, tool-io or
// reasoning response to parent, the adjacency a reorder must not break without
// warning.
func isResponseTo(child, parent *types.Commit) bool {
	if parent == nil {
		return false
	}
	switch child.ContentType {
	case types.ContentDialogue, types.ContentToolIO, types.ContentReasoning:
		return true
	default:
		return false
	}
}
