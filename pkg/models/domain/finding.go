package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "info"
	}
}

// ParseSeverity is the inverse of String. Unrecognized input maps to info.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

type FindingCategory string

const (
	CategoryDangerousPort    FindingCategory = "dangerous-port"
	CategoryPublicAccess     FindingCategory = "public-access"
	CategoryWeakTransport    FindingCategory = "weak-transport"
	CategorySKUMigration     FindingCategory = "sku-migration"
	CategoryDownscale        FindingCategory = "downscale"
	CategoryUpscale          FindingCategory = "upscale"
	CategoryIdle             FindingCategory = "idle"
	CategoryNamingViolation  FindingCategory = "naming-violation"
	CategoryNoAutoTerminate  FindingCategory = "no-auto-terminate"
	CategoryInactiveIdentity FindingCategory = "inactive-identity"
)

// FindingID derives a stable id from the rule category and the resource, so
// the same verdict keeps the same identity across runs, rebuilds from the
// history store, backups and alert payloads.
func FindingID(category FindingCategory, resourceID string) string {
	core := fmt.Sprintf("%s:%s", category, resourceID)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// Finding is the classifier's verdict on one resource. A resource produces at
// most one finding per rule family.
type Finding struct {
	ID             string
	Category       FindingCategory
	Severity       Severity
	Resource       Resource
	Reason         string
	Recommendation string
}
