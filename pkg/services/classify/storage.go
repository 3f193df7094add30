package classify

import (
	"fmt"
	"strings"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

func (c *Classifier) classifyStorageAccount(res domain.Resource) *domain.Finding {
	if res.Props["allow_blob_public_access"] == "true" {
		return newFinding(
			domain.CategoryPublicAccess,
			domain.SeverityHigh,
			res,
			"storage account permits public blob access at the account level",
			"Disable AllowBlobPublicAccess unless a documented exception exists.",
		)
	}
	if res.Props["https_only"] == "false" {
		return newFinding(
			domain.CategoryWeakTransport,
			domain.SeverityHigh,
			res,
			"storage account accepts plain HTTP traffic",
			"Enable secure transfer (HTTPS only) on the account.",
		)
	}
	if tls := res.Props["minimum_tls_version"]; tls != "" && tls != "TLS1_2" && tls != "TLS1_3" {
		return newFinding(
			domain.CategoryWeakTransport,
			domain.SeverityMedium,
			res,
			fmt.Sprintf("minimum TLS version is %s", tls),
			"Raise the minimum TLS version to 1.2.",
		)
	}
	return nil
}

func (c *Classifier) classifyContainer(res domain.Resource) *domain.Finding {
	access := res.Props["public_access"]
	if access == "" || strings.EqualFold(access, "None") {
		return nil
	}
	return newFinding(
		domain.CategoryPublicAccess,
		domain.SeverityCritical,
		res,
		fmt.Sprintf("blob container allows anonymous %s-level read access", strings.ToLower(access)),
		"Set the container public access level to private.",
	)
}
