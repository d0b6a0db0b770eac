package domain

import "time"

// PoolStatus is the lifecycle state of a subsidy allocation.
type PoolStatus string

const (
	PoolActive    PoolStatus = "active"
	PoolExhausted PoolStatus = "exhausted"
	PoolRevoked   PoolStatus = "revoked"
)

// ThresholdLevel labels the two depletion alerts a pool can raise.
type ThresholdLevel string

const (
	ThresholdLow      ThresholdLevel = "low"
	ThresholdCritical ThresholdLevel = "critical"
)

// SubsidyPool is a capped allocation of external (MEREF) funding that an
// institution draws down as subsidized loans are disbursed.
// Invariant: 0 <= UsedAmount <= AllocatedAmount. UsedAmount only decreases
// through an explicit reversal.
type SubsidyPool struct {
	ID                string     `json:"id" bson:"_id,omitempty"`
	InstitutionID     string     `json:"institution_id" bson:"institution_id"`
	AllocatedAmount   int64      `json:"allocated_amount" bson:"allocated_amount"`
	UsedAmount        int64      `json:"used_amount" bson:"used_amount"`
	Currency          string     `json:"currency" bson:"currency"`
	LowThreshold      int64      `json:"low_threshold" bson:"low_threshold"`
	CriticalThreshold int64      `json:"critical_threshold" bson:"critical_threshold"`
	Status            PoolStatus `json:"status" bson:"status"`
	Version           int64      `json:"version" bson:"version"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// CrossedThresholds returns the levels whose threshold was reached by moving
// usage from oldUsed to newUsed. A level appears at most once and only when
// the old usage was still below it.
func (p *SubsidyPool) CrossedThresholds(oldUsed, newUsed int64) []ThresholdLevel {
	var crossed []ThresholdLevel
	if p.LowThreshold > 0 && oldUsed < p.LowThreshold && newUsed >= p.LowThreshold {
		crossed = append(crossed, ThresholdLow)
	}
	if p.CriticalThreshold > 0 && oldUsed < p.CriticalThreshold && newUsed >= p.CriticalThreshold {
		crossed = append(crossed, ThresholdCritical)
	}
	return crossed
}

// Remaining is the unconsumed part of the allocation.
func (p *SubsidyPool) Remaining() int64 {
	return p.AllocatedAmount - p.UsedAmount
}
