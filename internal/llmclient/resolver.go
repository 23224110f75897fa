package llmclient

// ResolutionAction enumerates what a merge/rebase resolver callback
// decided to do about one conflicting issue (spec.md §6).
type ResolutionAction string

const (
	ResolutionResolved ResolutionAction = "resolved"
	ResolutionSkip     ResolutionAction = "skip"
	ResolutionAbort    ResolutionAction = "abort"
)

// Resolution is the return value of a merge/rebase resolver callback
// (spec.md §6: "Resolver callable for merge/rebase issues: issue ->
// Resolution{action, content_text?, reasoning?}").
type Resolution struct {
	Action      ResolutionAction
	ContentText string
	Reasoning   string
}

// Resolver decides the outcome for one conflicting commit during a merge
// or rebase. issueDescription summarizes the conflict in human-readable
// form (the two candidate contents, the commits involved).
type Resolver func(issueDescription string) (Resolution, error)
