package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/api/types"
)

func ptr[T any](v T) *T { return &v }

func TestProjectStatusRule(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(types.ProjectUpdateRequest{ProjectFields: types.ProjectFields{Status: ptr("inspection")}}))

	err := v.Struct(types.ProjectUpdateRequest{ProjectFields: types.ProjectFields{Status: ptr("paused")}})
	require.Error(t, err)
	assert.Equal(t, `invalid project status "paused"`, Message(err))
}

func TestMessagesUseJSONNames(t *testing.T) {
	err := New().Struct(types.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, "email is required; password is required", Message(err))

	err = New().Struct(types.ScheduleRequest{Frequency: "monthly"})
	require.Error(t, err)
	assert.Contains(t, Message(err), "frequency must be one of: every_10_minutes, every_30_minutes")
}

func TestAssignRequiresATarget(t *testing.T) {
	err := New().Struct(types.AssignRequest{ItemID: [16]byte{1}, Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, Message(err), "projectId is required when milestoneID is not set")
}
