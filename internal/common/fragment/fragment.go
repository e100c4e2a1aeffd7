package fragment

var _ IFragment = (*RaydiumPoolFragment)(nil)
var _ IFragment = (*RaydiumSwapFragment)(nil)
var _ IFragment = (*PumpCreateFragment)(nil)
var _ IFragment = (*PumpSwapFragment)(nil)

type FragmentType int32

const (
	RaydiumPoolType FragmentType = iota + 1
	RaydiumSwapType
	PumpCreateType
	PumpSwapType
)

// IFragment 从指令账户列表中还原出的账户布局
type IFragment interface {
	Type() FragmentType
	IsSetInstNumber() bool
	SetInstNumber(instIdxInTx int)
}

type instNumber struct {
	InstIdxInTx int
	set         bool
}

func (i *instNumber) IsSetInstNumber() bool {
	return i.set
}

func (i *instNumber) SetInstNumber(instIdxInTx int) {
	i.InstIdxInTx = instIdxInTx
	i.set = true
}
