package data

import (
	"testing"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/constants"

	"github.com/stretchr/testify/assert"
)

func TestModelMapping(t *testing.T) {
	e := &biz.EligibilityDecision{TransactionID: "t1", CustomerID: "c1", Amount: 5, Eligible: true, Timestamp: 9}
	em := toEligibilityModel(e)
	assert.Equal(t, e, fromEligibilityModel(&em))

	d := &biz.TierDecision{CustomerID: "c1", DecisionID: "d1", MonthlySpend: 7, Tier: biz.TierGold, UpdatedAt: 1700000000}
	tm := toTierModel(d)
	assert.Equal(t, "Gold", tm.Tier)
	assert.Equal(t, d, fromTierModel(&tm))

	assert.Equal(t, constants.RedisKeyLatestTier+"c1", tierCacheKey("c1"))
}
