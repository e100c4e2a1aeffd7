package decoder

import "math"

const (
	SolDecimals       uint8 = 9
	PumpTokenDecimals uint8 = 6

	lamportsPerSol = 1e9
)

// Market 由储备推导的市场状态
type Market struct {
	Price float64 // 以 SOL 计价的单价
	Tvl   float64 // 以 SOL 计价的池子总价值
	K     float64
}

// Quote 由 SOL 储备、代币储备与代币精度计算价格与 TVL
func Quote(sol, token uint64, decimals uint8) Market {
	solNorm := float64(sol) / lamportsPerSol
	tokenNorm := float64(token) / math.Pow10(int(decimals))

	m := Market{K: float64(sol) * float64(token)}
	if tokenNorm == 0 {
		m.Tvl = solNorm
		return m
	}
	m.Price = solNorm / tokenNorm
	m.Tvl = m.Price*tokenNorm + solNorm
	return m
}

// SolSide 拆分出 SOL 侧与代币侧储备
//
// pcIsSol 为 nil 时池子的 WSOL 方向未知，取较小的原始储备作为 SOL 侧。
func SolSide(r Reserves, pcIsSol *bool) (sol, token uint64) {
	if pcIsSol != nil {
		if *pcIsSol {
			return r.PC, r.Coin
		}
		return r.Coin, r.PC
	}
	if r.PC <= r.Coin {
		return r.PC, r.Coin
	}
	return r.Coin, r.PC
}
