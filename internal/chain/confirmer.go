package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

var (
	ErrConfirmTimeout = errors.New("signature not confirmed before timeout")
	ErrTxFailed       = errors.New("transaction failed on chain")
)

// Confirmer 轮询签名直到确认或失败
type Confirmer interface {
	PollUntilFinal(ctx context.Context, sig solana.Signature) error
}

type statusGetter interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// ConfirmConfig 确认轮询参数
type ConfirmConfig struct {
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64       `json:"multiplier" yaml:"multiplier"`
}

func (c ConfirmConfig) withDefaults() ConfirmConfig {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 400 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 4 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1.5
	}
	return c
}

// RPCConfirmer 基于 getSignatureStatuses 的指数退避轮询
type RPCConfirmer struct {
	client statusGetter
	cfg    ConfirmConfig
}

func NewRPCConfirmer(client statusGetter, cfg ConfirmConfig) *RPCConfirmer {
	return &RPCConfirmer{client: client, cfg: cfg.withDefaults()}
}

// PollUntilFinal confirmed 或 finalized 视为成功，链上执行错误视为失败
func (c *RPCConfirmer) PollUntilFinal(ctx context.Context, sig solana.Signature) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.Multiplier = c.cfg.Multiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = c.cfg.Timeout

	attempts := 0
	operation := func() error {
		attempts++
		out, err := c.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			return errNotYetSeen
		}
		st := out.Value[0]
		if st.Err != nil {
			return backoff.Permanent(errors.Wrapf(ErrTxFailed, "%v", st.Err))
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		default:
			return errNotYetSeen
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	if err == nil {
		logger.Debug("✅ 交易已确认", logger.String("signature", sig.String()), logger.Int("attempts", attempts))
		return nil
	}
	if errors.Is(err, ErrTxFailed) {
		return err
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "confirm cancelled")
	}
	return errors.Wrap(ErrConfirmTimeout, fmt.Sprintf("%s after %d attempts: %v", sig, attempts, err))
}

var errNotYetSeen = errors.New("signature not yet confirmed")
