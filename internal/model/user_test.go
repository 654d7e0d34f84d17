package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCapability(t *testing.T) {
	approvalCaps := []string{CapabilityApprove, CapabilityApproveWithConflicts, CapabilityReject}

	for _, cap := range approvalCaps {
		assert.True(t, HasCapability(RoleApprover, cap), cap)
		assert.True(t, HasCapability(RoleAdmin, cap), cap)
		assert.False(t, HasCapability(RoleEngineer, cap), cap)
		assert.False(t, HasCapability("", cap), cap)
	}

	// Non-approval capabilities are open to every role.
	assert.True(t, HasCapability(RoleEngineer, "book"))
}
