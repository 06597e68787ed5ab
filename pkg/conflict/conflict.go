package conflict

import "fmt"

// Kind identifies the branch relationship a scan found.
type Kind string

const (
	// KindBehind means the base branch has commits the working branch
	// lacks, and the working branch has none of its own.
	KindBehind Kind = "behind"

	// KindDiverged means both branches carry commits the other lacks.
	KindDiverged Kind = "diverged"

	// KindOpenPeerChanges means the branches are identical but open peer
	// pull requests target the working branch.
	KindOpenPeerChanges Kind = "open-peer-changes"
)

// Severity grades how urgently a conflict needs attention.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// PeerChange references an open peer pull request targeting the working
// branch.
type PeerChange struct {
	Number int
	Title  string
	Author string
	URL    string
}

// Evidence carries the facts a classification was derived from.
type Evidence struct {
	// AheadBy counts commits the working branch has that the base lacks.
	AheadBy int

	// BehindBy counts commits the base has that the working branch lacks.
	BehindBy int

	// PeerChanges lists open peer pull requests, for the
	// open-peer-changes kind.
	PeerChanges []PeerChange
}

// Conflict is one classified branch-relationship problem together with the
// deterministic resolutions that apply to it.
type Conflict struct {
	Kind     Kind
	Severity Severity

	// Base and Working name the branches the scan compared.
	Base    string
	Working string

	Evidence    Evidence
	Resolutions []Resolution
}

// Summary renders a one-line human-readable description.
func (c Conflict) Summary() string {
	switch c.Kind {
	case KindBehind:
		return fmt.Sprintf("branch %q is %d commit(s) behind %q", c.Working, c.Evidence.BehindBy, c.Base)
	case KindDiverged:
		return fmt.Sprintf("branch %q and %q have diverged (%d ahead, %d behind)",
			c.Working, c.Base, c.Evidence.AheadBy, c.Evidence.BehindBy)
	case KindOpenPeerChanges:
		return fmt.Sprintf("%d open peer change(s) target branch %q", len(c.Evidence.PeerChanges), c.Working)
	default:
		return string(c.Kind)
	}
}
