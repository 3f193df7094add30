package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
)

func flaggedRecord() store.EntryRecord {
	return store.EntryRecord{
		RunID:          "run-1",
		ResourceID:     "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/acct",
		ResourceName:   "acct",
		ResourceKind:   "storage_account",
		Scope:          "subscription:pyx-prod",
		Group:          "rg",
		FindingID:      "cafe0123deadbeef",
		Category:       "public-access",
		Severity:       "high",
		Reason:         "storage account permits public blob access at the account level",
		Recommendation: "Disable AllowBlobPublicAccess unless a documented exception exists.",
		ActionOutcome:  "applied",
	}
}

func TestMapEntryStoreToDomain(t *testing.T) {
	t.Run("rebuilt finding keeps its persisted id", func(t *testing.T) {
		entry := MapEntryStoreToDomain(flaggedRecord())
		require.NotNil(t, entry.Finding)
		assert.Equal(t, "cafe0123deadbeef", entry.Finding.ID)
	})

	t.Run("rows without a stored id recompute the classifier derivation", func(t *testing.T) {
		rec := flaggedRecord()
		rec.FindingID = ""
		entry := MapEntryStoreToDomain(rec)
		require.NotNil(t, entry.Finding)
		assert.Equal(t, domain.FindingID(domain.CategoryPublicAccess, rec.ResourceID), entry.Finding.ID)
		assert.NotEmpty(t, entry.Finding.ID)
	})

	t.Run("scope string round-trips", func(t *testing.T) {
		entry := MapEntryStoreToDomain(flaggedRecord())
		assert.Equal(t, "subscription:pyx-prod", entry.Resource.Scope.String())
	})

	t.Run("clean rows carry no finding", func(t *testing.T) {
		rec := flaggedRecord()
		rec.FindingID = ""
		rec.Category = ""
		entry := MapEntryStoreToDomain(rec)
		assert.Nil(t, entry.Finding)
	})

	t.Run("action outcome maps onto the entry", func(t *testing.T) {
		entry := MapEntryStoreToDomain(flaggedRecord())
		require.NotNil(t, entry.Action)
		assert.Equal(t, domain.ActionApplied, entry.Action.Outcome)
	})
}

func TestMapEntryStoreToApi(t *testing.T) {
	finding := MapEntryStoreToApi(flaggedRecord())
	assert.Equal(t, "cafe0123deadbeef", finding.Id)
	assert.Equal(t, "acct", finding.Resource.Name)
	assert.Equal(t, "public-access", finding.Category)
}
