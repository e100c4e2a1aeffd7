package trader

import "github.com/ninja0404/meme-sniper/internal/model"

// Effect 状态变更后需要由引擎执行的副作用
type Effect int32

const (
	EffectSubmitBuy Effect = iota + 1
	EffectSubmitSell
	EffectPersist
	EffectEvict
	EffectNotify
	EffectAnomaly // 流动性被撤出
)

func (e Effect) String() string {
	switch e {
	case EffectSubmitBuy:
		return "submit_buy"
	case EffectSubmitSell:
		return "submit_sell"
	case EffectPersist:
		return "persist"
	case EffectEvict:
		return "evict"
	case EffectNotify:
		return "notify"
	case EffectAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// Outcome 一次状态转移的结果，Trade 为新的副本
type Outcome struct {
	Trade   *model.Trade
	Effects []Effect
}

func (o Outcome) Has(e Effect) bool {
	for _, x := range o.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// Changed 是否有需要引擎处理的结果
func (o Outcome) Changed() bool {
	return o.Trade != nil
}

func (o *Outcome) add(effects ...Effect) {
	o.Effects = append(o.Effects, effects...)
}

// SubmitSide 需要提交的方向
func (o Outcome) SubmitSide() (model.Side, bool) {
	switch {
	case o.Has(EffectSubmitBuy):
		return model.SideBuy, true
	case o.Has(EffectSubmitSell):
		return model.SideSell, true
	default:
		return 0, false
	}
}
