package domain

import "fmt"

type ScopeKind string

const (
	ScopeKindSubscription ScopeKind = "subscription"
	ScopeKindWorkspace    ScopeKind = "workspace"
)

// Scope is one enumerable audit boundary: an Azure subscription or a
// Databricks workspace.
type Scope struct {
	ID          string
	DisplayName string
	Kind        ScopeKind
	TenantID    string
	// Environment is the expected naming token for resources inside this
	// scope ("prod", "preprod", "dev"), derived from tags or profile name.
	Environment string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.DisplayName)
}
