package remediate

import (
	"context"
	"errors"
	"testing"

	"github.com/databricks/databricks-sdk-go/service/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

type fakeUserDirectory struct {
	user      *iam.User
	getErr    error
	deleteErr error
	events    *[]string
}

func (d *fakeUserDirectory) GetById(_ context.Context, id string) (*iam.User, error) {
	*d.events = append(*d.events, "get:"+id)
	return d.user, d.getErr
}

func (d *fakeUserDirectory) DeleteById(_ context.Context, id string) error {
	*d.events = append(*d.events, "delete:"+id)
	return d.deleteErr
}

type fakeGroupDirectory struct {
	patchErr error
	events   *[]string
	updates  []iam.PartialUpdate
}

func (d *fakeGroupDirectory) Patch(_ context.Context, request iam.PartialUpdate) error {
	*d.events = append(*d.events, "patch:"+request.Id)
	d.updates = append(d.updates, request)
	return d.patchErr
}

func inactiveUserFinding(id string) domain.Finding {
	return domain.Finding{
		ID:       "f-" + id,
		Category: domain.CategoryInactiveIdentity,
		Resource: domain.Resource{
			ID:    id,
			Name:  "ghost@pyxhealth.com",
			Kind:  domain.ResourceKindUser,
			Props: map[string]string{"active": "false"},
		},
	}
}

func TestRemoveWorkspaceUser(t *testing.T) {
	t.Run("detaches group memberships before deleting", func(t *testing.T) {
		var events []string
		users := &fakeUserDirectory{
			events: &events,
			user: &iam.User{
				Id: "u1",
				Groups: []iam.ComplexValue{
					{Value: "g1", Display: "data-eng"},
					{Value: "g2", Display: "admins"},
				},
			},
		}
		groups := &fakeGroupDirectory{events: &events}
		action := &RemoveWorkspaceUser{Users: users, Groups: groups}

		require.NoError(t, action.Apply(context.Background(), inactiveUserFinding("u1")))
		assert.Equal(t, []string{"get:u1", "patch:g1", "patch:g2", "delete:u1"}, events)

		require.Len(t, groups.updates, 2)
		update := groups.updates[0]
		assert.Equal(t, "g1", update.Id)
		require.Len(t, update.Operations, 1)
		assert.Equal(t, iam.PatchOpRemove, update.Operations[0].Op)
		assert.Equal(t, `members[value eq "u1"]`, update.Operations[0].Path)
		assert.Equal(t, []iam.PatchSchema{iam.PatchSchemaUrnIetfParamsScimApiMessages20PatchOp}, update.Schemas)
	})

	t.Run("membership patch failure aborts the delete", func(t *testing.T) {
		var events []string
		users := &fakeUserDirectory{
			events: &events,
			user:   &iam.User{Id: "u2", Groups: []iam.ComplexValue{{Value: "g1"}}},
		}
		groups := &fakeGroupDirectory{events: &events, patchErr: errors.New("scim rejected")}
		action := &RemoveWorkspaceUser{Users: users, Groups: groups}

		err := action.Apply(context.Background(), inactiveUserFinding("u2"))
		require.Error(t, err)
		assert.NotContains(t, events, "delete:u2")
	})

	t.Run("user with no groups goes straight to delete", func(t *testing.T) {
		var events []string
		users := &fakeUserDirectory{events: &events, user: &iam.User{Id: "u3"}}
		action := &RemoveWorkspaceUser{Users: users, Groups: &fakeGroupDirectory{events: &events}}

		require.NoError(t, action.Apply(context.Background(), inactiveUserFinding("u3")))
		assert.Equal(t, []string{"get:u3", "delete:u3"}, events)
	})

	t.Run("active user is refused", func(t *testing.T) {
		var events []string
		users := &fakeUserDirectory{events: &events}
		action := &RemoveWorkspaceUser{Users: users, Groups: &fakeGroupDirectory{events: &events}}

		f := inactiveUserFinding("u4")
		f.Resource.Props["active"] = "true"
		err := action.Apply(context.Background(), f)
		require.Error(t, err)
		assert.Empty(t, events)
	})
}
