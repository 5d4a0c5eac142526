// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// LedgerModel is the base for ledger entities. Ids are monotonic and never
// reused: entities are deactivated or burned, never deleted.
type LedgerModel struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// IDList stores an ordered list of ledger ids as a JSON column.
type IDList []uint64

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]uint64{})
	}
	return json.Marshal([]uint64(l))
}

func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return nil
}

// Enums
type UserType string

const (
	UserTypeCreator UserType = "creator"
	UserTypeBuyer   UserType = "buyer"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// LicenseTier is the closed set of license classes. Every tier carries an
// independent price and duration per asset.
type LicenseTier string

const (
	TierPersonal   LicenseTier = "personal"
	TierIndie      LicenseTier = "indie"
	TierCommercial LicenseTier = "commercial"
	TierEnterprise LicenseTier = "enterprise"
)

// AllTiers lists the recognized tiers in their canonical order.
var AllTiers = []LicenseTier{TierPersonal, TierIndie, TierCommercial, TierEnterprise}

func (t LicenseTier) Valid() bool {
	switch t {
	case TierPersonal, TierIndie, TierCommercial, TierEnterprise:
		return true
	}
	return false
}

type PaymentKind string

const (
	PaymentKindDerivative PaymentKind = "derivative"
	PaymentKindDirect     PaymentKind = "direct"
)

// Royalty rates are expressed in basis points (1/100 of a percent).
const (
	BpsDenominator = 10000
	MaxRoyaltyBps  = 2000 // 20%
)

// Duration and expiry sentinels. A zero duration means a perpetual license;
// a zero expiry means the record never lapses.
const (
	DurationPerpetual int64 = 0
	ExpiryPerpetual   int64 = 0
)

// TimeRemainingUnbounded is returned for perpetual licenses.
const TimeRemainingUnbounded int64 = -1
