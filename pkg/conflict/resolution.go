package conflict

// Action names a remedial action a resolution proposes.
type Action string

const (
	ActionMerge      Action = "merge"
	ActionRebase     Action = "rebase"
	ActionNewBranch  Action = "new-branch"
	ActionCoordinate Action = "coordinate"
	ActionManual     Action = "manual"
)

// Risk grades how likely an action is to lose or mangle work.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Resolution is one proposed remedy for a conflict. Resolutions are derived
// deterministically from the conflict kind; a conflict may carry several.
type Resolution struct {
	Action Action
	Risk   Risk

	// Steps spells the remedy out in order, for display to a human.
	Steps []string
}

// resolutionsFor maps a conflict kind to its remedies.
func resolutionsFor(kind Kind) []Resolution {
	switch kind {
	case KindBehind:
		return []Resolution{{
			Action: ActionMerge,
			Risk:   RiskLow,
			Steps: []string{
				"create a backup branch at the current tip",
				"merge the base branch into the working branch",
				"verify the merged content",
			},
		}}
	case KindDiverged:
		return []Resolution{
			{
				Action: ActionRebase,
				Risk:   RiskMedium,
				Steps: []string{
					"create a backup branch at the current tip",
					"rebase the working branch onto the base branch",
					"resolve any overlapping edits",
					"verify the rebased content",
				},
			},
			{
				Action: ActionNewBranch,
				Risk:   RiskLow,
				Steps: []string{
					"create a fresh branch from the base tip",
					"re-apply the working branch changes",
					"retire the old working branch",
				},
			},
		}
	case KindOpenPeerChanges:
		return []Resolution{{
			Action: ActionCoordinate,
			Risk:   RiskLow,
			Steps: []string{
				"review the open peer changes",
				"agree on landing order before pushing",
			},
		}}
	default:
		return []Resolution{{Action: ActionManual, Risk: RiskHigh}}
	}
}
