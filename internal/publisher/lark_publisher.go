package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/notifier"
	"github.com/ninja0404/meme-sniper/pkg/utils"
)

const larkTimeout = 5 * time.Second

// LarkPublisher 飞书发布器
type LarkPublisher struct {
	webhookURL string
	loc        *time.Location
}

// NewLarkPublisher 创建飞书发布器
func NewLarkPublisher(webhookURL string) *LarkPublisher {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &LarkPublisher{
		webhookURL: webhookURL,
		loc:        loc,
	}
}

func (p *LarkPublisher) GetType() string {
	return "lark"
}

func (p *LarkPublisher) Publish(ev *common.TradeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), larkTimeout)
	defer cancel()
	return notifier.SendToLark(ctx, p.formatMessage(ev), p.webhookURL)
}

func (p *LarkPublisher) Close() error {
	return nil
}

// stateTitle 状态对应的标题
func stateTitle(state string) string {
	switch state {
	case model.StateBuySuccess.String():
		return "🟢 买入成交"
	case model.StateSellSuccess.String():
		return "💰 卖出成交"
	case model.StateBuyFailed.String():
		return "❌ 买入失败"
	case model.StateSellFailed.String():
		return "🚫 卖出失败"
	default:
		return "ℹ️ 仓位更新"
	}
}

// formatMessage 格式化飞书消息
func (p *LarkPublisher) formatMessage(ev *common.TradeEvent) string {
	amount := ev.Amount.String()
	if ev.Decimals >= 0 {
		amount = utils.FormatAmountWithDecimals(amount, ev.Decimals)
	}
	pct := utils.ConvertToPercentage(ev.Pct.String())

	msg := fmt.Sprintf(`%s

🆔 仓位ID: %d
📍 代币地址: %s
🏦 池子: %s (%s)
💵 买入价格: %s SOL
💸 卖出价格: %s SOL
📈 收益率: %s
🪙 持仓数量: %s
🔗 交易签名: %s
🔗 GMGN链接: https://gmgn.ai/sol/token/%s
⏰ 时间: %s`,
		stateTitle(ev.State),
		ev.TradeID,
		ev.Mint,
		utils.GetDisplayWalletAddress(ev.Pool),
		ev.AmmKind,
		utils.FormatPrice(ev.BuyPrice.String()),
		utils.FormatPrice(ev.SellPrice.String()),
		pct,
		amount,
		ev.Signature,
		ev.Mint,
		ev.Timestamp.In(p.loc).Format("2006-01-02 15:04:05"))

	if ev.LastError != "" {
		msg += "\n⚠️ 错误: " + ev.LastError
	}
	return msg
}
