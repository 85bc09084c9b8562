package services

import (
	"testing"

	"opinionhub/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestUserIdentifierPrefersFingerprint(t *testing.T) {
	id := VoteIdentity{DeviceID: "dev-1", DeviceFingerprint: "fp-1"}
	assert.Equal(t, "fp-1", id.UserIdentifier())

	id.DeviceFingerprint = ""
	assert.Equal(t, "dev-1", id.UserIdentifier())
}

func TestConditionsFullIdentity(t *testing.T) {
	id := VoteIdentity{
		DeviceID:          "dev-1",
		DeviceFingerprint: "fp-1",
		IPAddress:         "203.0.113.7",
		UserAgentHash:     "uah",
	}

	conds := id.conditions()
	assert.Equal(t, []dedupCondition{
		{"user_identifier", "dev-1"},
		{"device_id", "dev-1"},
		{"user_agent_hash", "uah"},
		{"user_identifier", "fp-1"},
		{"device_fingerprint", "fp-1"},
		{"ip_address", "203.0.113.7"},
	}, conds)
}

func TestConditionsSkipOptionalSignals(t *testing.T) {
	id := VoteIdentity{
		DeviceID:      "dev-1",
		IPAddress:     utils.IPUnknown,
		UserAgentHash: "uah",
	}

	conds := id.conditions()
	assert.Len(t, conds, 3)
	for _, cond := range conds {
		assert.NotEqual(t, "device_fingerprint", cond.column)
		assert.NotEqual(t, "ip_address", cond.column)
	}
}
