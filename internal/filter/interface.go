package filter

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

// Condition 新池入场条件接口
type Condition interface {
	// Evaluate 评估条件是否满足
	Evaluate(candidate *Candidate) bool

	GetName() string

	GetDescription() string
}

// Candidate 待评估的新池，包含所有需要的数据
type Candidate struct {
	Protocol     decoder.Protocol
	Mint         solana.PublicKey
	Pool         solana.PublicKey
	Signature    solana.Signature
	Decimals     uint8
	SolLiquidity decimal.Decimal // 以 SOL 计的初始流动性
	Price        decimal.Decimal
	Tvl          decimal.Decimal
}

// LogicalOperator 逻辑操作符
type LogicalOperator string

const (
	AND LogicalOperator = "AND"
	OR  LogicalOperator = "OR"
	NOT LogicalOperator = "NOT"
)

// CompositeCondition 复合条件，支持AND/OR/NOT逻辑组合
type CompositeCondition struct {
	Name        string
	Description string
	Operator    LogicalOperator
	Conditions  []Condition
}

func (c *CompositeCondition) Evaluate(candidate *Candidate) bool {
	switch c.Operator {
	case AND:
		for _, condition := range c.Conditions {
			if !condition.Evaluate(candidate) {
				return false
			}
		}
		return len(c.Conditions) > 0

	case OR:
		for _, condition := range c.Conditions {
			if condition.Evaluate(candidate) {
				return true
			}
		}
		return false

	case NOT:
		if len(c.Conditions) != 1 {
			return false
		}
		return !c.Conditions[0].Evaluate(candidate)

	default:
		return false
	}
}

func (c *CompositeCondition) GetName() string {
	return c.Name
}

func (c *CompositeCondition) GetDescription() string {
	return c.Description
}

// Builder 条件建造者，支持链式调用
type Builder struct {
	conditions []Condition
	operator   LogicalOperator
	name       string
	desc       string
}

func NewBuilder() *Builder {
	return &Builder{
		conditions: make([]Condition, 0),
		operator:   AND,
	}
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) Description(desc string) *Builder {
	b.desc = desc
	return b
}

func (b *Builder) And(condition Condition) *Builder {
	b.operator = AND
	b.conditions = append(b.conditions, condition)
	return b
}

func (b *Builder) Or(condition Condition) *Builder {
	b.operator = OR
	b.conditions = append(b.conditions, condition)
	return b
}

// Not 取反，会丢弃之前加入的条件
func (b *Builder) Not(condition Condition) *Builder {
	b.operator = NOT
	b.conditions = []Condition{condition}
	return b
}

func (b *Builder) Build() Condition {
	if len(b.conditions) == 1 && b.operator == AND {
		return b.conditions[0]
	}
	return &CompositeCondition{
		Name:        b.name,
		Description: b.desc,
		Operator:    b.operator,
		Conditions:  b.conditions,
	}
}
