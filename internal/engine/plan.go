package engine

import "github.com/kellertobias/calsync/internal/domain"

// ActionKind tags one step of a plan.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// Action is one provider call the apply step must make. Plans are pure values;
// nothing happens until a plan is applied.
type Action struct {
	Kind ActionKind
	Key  string

	// Source is the occurrence driving a create or update; nil for deletes.
	Source *domain.Occurrence
	// Target is the existing twin for updates and deletes; nil for creates.
	Target *domain.TargetEvent
	// Desired is the full wanted state of the target event for creates and
	// updates, marker text included.
	Desired *domain.TargetEvent

	Reason string
}

// Plan is the sole output of the reconciler: an ordered action list plus
// mapping rows to upsert without any provider call (twin re-pointing after
// identifier rotation).
type Plan struct {
	Actions []Action
	Repairs []domain.MappingRow
}

// Empty reports whether applying the plan would do nothing.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0 && len(p.Repairs) == 0
}

// PlanSummary counts planned actions per kind.
type PlanSummary struct {
	Creates int
	Updates int
	Deletes int
}

// Summary tallies the plan's actions.
func (p *Plan) Summary() PlanSummary {
	var s PlanSummary
	for i := range p.Actions {
		switch p.Actions[i].Kind {
		case ActionCreate:
			s.Creates++
		case ActionUpdate:
			s.Updates++
		case ActionDelete:
			s.Deletes++
		}
	}
	return s
}
