package filter

import (
	"github.com/shopspring/decimal"
)

// BaseCondition 基础条件，包含所有条件的通用字段和方法
type BaseCondition struct {
	Name        string
	Description string
	Operator    string // ">=", ">", "<=", "<", "=="
}

func (c *BaseCondition) GetName() string {
	return c.Name
}

func (c *BaseCondition) GetDescription() string {
	return c.Description
}

// CompareDecimal 统一的decimal比较方法
func (c *BaseCondition) CompareDecimal(value, threshold decimal.Decimal) bool {
	switch c.Operator {
	case ">=":
		return value.GreaterThanOrEqual(threshold)
	case ">":
		return value.GreaterThan(threshold)
	case "<=":
		return value.LessThanOrEqual(threshold)
	case "<":
		return value.LessThan(threshold)
	case "==":
		return value.Equal(threshold)
	default:
		return false
	}
}

func (c *BaseCondition) CompareUint(value, threshold uint64) bool {
	switch c.Operator {
	case ">=":
		return value >= threshold
	case ">":
		return value > threshold
	case "<=":
		return value <= threshold
	case "<":
		return value < threshold
	case "==":
		return value == threshold
	default:
		return false
	}
}
