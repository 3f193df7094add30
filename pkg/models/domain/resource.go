package domain

type ResourceKind string

const (
	ResourceKindNSGRule       ResourceKind = "nsg_rule"
	ResourceKindStorageAcct   ResourceKind = "storage_account"
	ResourceKindContainer     ResourceKind = "blob_container"
	ResourceKindSQLDatabase   ResourceKind = "sql_database"
	ResourceKindResourceGroup ResourceKind = "resource_group"
	ResourceKindCluster       ResourceKind = "cluster"
	ResourceKindWarehouse     ResourceKind = "warehouse"
	ResourceKindUser          ResourceKind = "user"
)

// Resource is one cloud object under audit. Kind-specific attributes live in
// Props; walkers fill only the keys their kind defines.
type Resource struct {
	ID          string
	Name        string
	Kind        ResourceKind
	Scope       Scope
	Group       string // resource group, empty for workspace resources
	Location    string
	Tags        map[string]string
	Props       map[string]string
	Utilization *Utilization // nil when the kind carries no metrics
}

// UtilizationState distinguishes "no data" from "observed zero". A resource
// with no metric samples in the lookback window is Unknown, never Idle.
type UtilizationState string

const (
	UtilizationActive  UtilizationState = "active"
	UtilizationIdle    UtilizationState = "idle"
	UtilizationUnknown UtilizationState = "unknown"
)

type Utilization struct {
	AveragePercent float64
	MaximumPercent float64
	SampleCount    int
	LookbackDays   int
}

// State reports the tri-state utilization classification for the raw samples.
// Threshold interpretation (idle vs underutilized) is the classifier's job.
func (u *Utilization) State() UtilizationState {
	if u == nil || u.SampleCount == 0 {
		return UtilizationUnknown
	}
	if u.AveragePercent == 0 && u.MaximumPercent == 0 {
		return UtilizationIdle
	}
	return UtilizationActive
}
