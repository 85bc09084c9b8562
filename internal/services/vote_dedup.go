package services

import (
	"errors"

	"opinionhub/internal/models"
	"opinionhub/internal/utils"

	"gorm.io/gorm"
)

// VoteIdentity bundles every identifier a vote request carries. Optional
// fields are empty when the client or the network could not supply them and
// are then skipped by the dedup query.
type VoteIdentity struct {
	DeviceID          string
	DeviceFingerprint string // optional
	IPAddress         string // utils.IPUnknown when undeterminable
	UserAgentHash     string
}

// UserIdentifier is the authoritative identity for the uniqueness
// constraint: the fingerprint when present (survives cleared storage),
// otherwise the device ID.
func (id VoteIdentity) UserIdentifier() string {
	if id.DeviceFingerprint != "" {
		return id.DeviceFingerprint
	}
	return id.DeviceID
}

type dedupCondition struct {
	column string
	value  string
}

// conditions lists the identifier equalities that are OR'd together. A match
// on any one of them is treated as evidence of a prior vote; this is
// deliberately broad and prefers blocking a legitimate second device over
// letting a duplicate through.
func (id VoteIdentity) conditions() []dedupCondition {
	conds := []dedupCondition{
		{"user_identifier", id.DeviceID},
		{"device_id", id.DeviceID},
		{"user_agent_hash", id.UserAgentHash},
	}
	if id.DeviceFingerprint != "" {
		conds = append(conds,
			dedupCondition{"user_identifier", id.DeviceFingerprint},
			dedupCondition{"device_fingerprint", id.DeviceFingerprint},
		)
	}
	if id.IPAddress != "" && id.IPAddress != utils.IPUnknown {
		conds = append(conds, dedupCondition{"ip_address", id.IPAddress})
	}
	return conds
}

// FindExistingVote returns the prior vote on the poll matching any of the
// identity's signals, or nil when none exists.
func FindExistingVote(gdb *gorm.DB, pollID uint, id VoteIdentity) (*models.Vote, error) {
	conds := id.conditions()

	or := gdb.Where(conds[0].column+" = ?", conds[0].value)
	for _, cond := range conds[1:] {
		or = or.Or(cond.column+" = ?", cond.value)
	}

	var vote models.Vote
	err := gdb.Where("poll_id = ?", pollID).Where(or).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// FindVoteByIdentifier is the narrow check used by the pre-vote status
// endpoint: it only consults the authoritative user_identifier column.
func FindVoteByIdentifier(gdb *gorm.DB, pollID uint, identifiers ...string) (*models.Vote, error) {
	present := identifiers[:0]
	for _, ident := range identifiers {
		if ident != "" {
			present = append(present, ident)
		}
	}

	var vote models.Vote
	err := gdb.Where("poll_id = ? AND user_identifier IN ?", pollID, present).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}
