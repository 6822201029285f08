package entitlement

import (
	"encoding/json"
	"strconv"
)

type limitKind uint8

const (
	kindUndefined limitKind = iota
	kindCount
	kindUnlimited
	kindFlag
)

// LimitValue is the resolved entitlement for one feature under one plan tier:
// a finite quota, the unlimited sentinel, or a boolean flag.
// The zero value is undefined and never returned by a valid resolver.
type LimitValue struct {
	kind  limitKind
	count int64
	flag  bool
}

// Limit returns a finite quota
func Limit(n int64) LimitValue {
	return LimitValue{kind: kindCount, count: n}
}

// Unlimited returns the quota sentinel that allows any usage
func Unlimited() LimitValue {
	return LimitValue{kind: kindUnlimited}
}

// Flag returns a boolean entitlement
func Flag(enabled bool) LimitValue {
	return LimitValue{kind: kindFlag, flag: enabled}
}

// IsDefined reports whether the value was built by one of the constructors
func (v LimitValue) IsDefined() bool {
	return v.kind != kindUndefined
}

// IsQuota returns true for finite and unlimited quotas
func (v LimitValue) IsQuota() bool {
	return v.kind == kindCount || v.kind == kindUnlimited
}

// IsFlag returns true for boolean entitlements
func (v LimitValue) IsFlag() bool {
	return v.kind == kindFlag
}

// IsUnlimited returns true for the unlimited sentinel
func (v LimitValue) IsUnlimited() bool {
	return v.kind == kindUnlimited
}

// Count returns the finite quota. ok is false for unlimited and flag values.
func (v LimitValue) Count() (n int64, ok bool) {
	if v.kind != kindCount {
		return 0, false
	}
	return v.count, true
}

// Enabled returns the flag value. ok is false for quota values.
func (v LimitValue) Enabled() (enabled bool, ok bool) {
	if v.kind != kindFlag {
		return false, false
	}
	return v.flag, true
}

// Allows reports whether one more unit may be consumed given current usage.
// Unlimited always allows; a finite quota allows while usage is below it;
// a flag ignores usage and returns its value.
func (v LimitValue) Allows(usage int64) bool {
	switch v.kind {
	case kindUnlimited:
		return true
	case kindCount:
		return usage < v.count
	case kindFlag:
		return v.flag
	default:
		return false
	}
}

// String returns a human-readable form
func (v LimitValue) String() string {
	switch v.kind {
	case kindUnlimited:
		return "unlimited"
	case kindCount:
		return strconv.FormatInt(v.count, 10)
	case kindFlag:
		return strconv.FormatBool(v.flag)
	default:
		return "undefined"
	}
}

// MarshalJSON encodes quotas as numbers, the sentinel as "unlimited" and flags as booleans
func (v LimitValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindUnlimited:
		return json.Marshal("unlimited")
	case kindCount:
		return json.Marshal(v.count)
	case kindFlag:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}
