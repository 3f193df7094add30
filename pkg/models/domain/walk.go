package domain

type WalkStatus string

const (
	WalkFound         WalkStatus = "found"
	WalkNotApplicable WalkStatus = "not-applicable"
	WalkError         WalkStatus = "error"
)

// KindResult is the outcome of enumerating one resource kind in one scope.
// A failed list call is surfaced as WalkError, never as an empty Found:
// a permissions failure must stay distinguishable from a genuinely empty
// subscription in the emitted report.
type KindResult struct {
	Scope     Scope
	Kind      ResourceKind
	Status    WalkStatus
	Resources []Resource
	Err       string
}

func Found(scope Scope, kind ResourceKind, resources []Resource) KindResult {
	return KindResult{Scope: scope, Kind: kind, Status: WalkFound, Resources: resources}
}

func NotApplicable(scope Scope, kind ResourceKind) KindResult {
	return KindResult{Scope: scope, Kind: kind, Status: WalkNotApplicable}
}

func WalkFailed(scope Scope, kind ResourceKind, err error) KindResult {
	return KindResult{Scope: scope, Kind: kind, Status: WalkError, Err: err.Error()}
}
