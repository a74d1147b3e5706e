package broadcast

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Hooks 是 Track 过程中的回调，均可为 nil
type Hooks struct {
	// Submitted 收到交易哈希时调用，至多一次，且只在结果确定之前
	Submitted func(hash common.Hash)

	// Confirmation 每次确认数增加时调用
	Confirmation func(hash common.Hash, confirmations uint64)

	// Settled 最终结果确定时调用，恰好一次
	Settled func(outcome Outcome)
}

// Tracker 把广播事件序列归约为唯一的结果
//
// 第一个回执决定结果；没有回执的错误记为失败；结果确定后的事件被忽略
type Tracker struct {
	hash    common.Hash
	hashed  bool
	outcome *Outcome
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply 处理一个事件，仅在结果第一次确定时返回 true
func (t *Tracker) Apply(ev Event) (Outcome, bool) {
	if t.outcome != nil {
		return *t.outcome, false
	}

	switch ev.Kind {
	case KindHash:
		if !t.hashed {
			t.hash = ev.Hash
			t.hashed = true
		}
		return Outcome{}, false

	case KindReceipt, KindConfirmation:
		if ev.Receipt == nil {
			return Outcome{}, false
		}
		t.settle(fromReceipt(ev.Receipt))

	case KindError:
		reason := "unknown broadcast error"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		t.settle(Outcome{Status: StatusFailure, Hash: t.hash, Reason: reason})

	default:
		return Outcome{}, false
	}

	return *t.outcome, true
}

// Hash 返回已知的交易哈希
func (t *Tracker) Hash() (common.Hash, bool) {
	return t.hash, t.hashed
}

// Settled 返回已确定的结果
func (t *Tracker) Settled() (Outcome, bool) {
	if t.outcome == nil {
		return Outcome{}, false
	}

	return *t.outcome, true
}

// Finish 在事件流结束时调用；未确定时记为失败
func (t *Tracker) Finish(reason string) (Outcome, bool) {
	if t.outcome != nil {
		return *t.outcome, false
	}

	t.settle(Outcome{Status: StatusFailure, Hash: t.hash, Reason: reason})

	return *t.outcome, true
}

func (t *Tracker) settle(o Outcome) {
	if o.Hash == (common.Hash{}) {
		o.Hash = t.hash
	}
	t.outcome = &o
}

func fromReceipt(receipt *types.Receipt) Outcome {
	if receipt.Status == types.ReceiptStatusSuccessful {
		return Outcome{Status: StatusSuccess, Hash: receipt.TxHash, Receipt: receipt}
	}

	return Outcome{Status: StatusFailure, Hash: receipt.TxHash, Receipt: receipt, Reason: "transaction reverted"}
}

// Reduce 归约一个有限事件序列
func Reduce(events []Event) Outcome {
	t := NewTracker()
	for _, ev := range events {
		t.Apply(ev)
	}

	o, _ := t.Finish("broadcast ended without receipt")

	return o
}

// Track 消费事件通道直到关闭，返回唯一结果
func Track(ctx context.Context, events <-chan Event, hooks Hooks) Outcome {
	t := NewTracker()

	settle := func(o Outcome, first bool) {
		if first && hooks.Settled != nil {
			hooks.Settled(o)
		}
	}

	var lastConfirmations uint64
	for {
		select {
		case <-ctx.Done():
			o, first := t.Finish(ctx.Err().Error())
			settle(o, first)
			return o

		case ev, ok := <-events:
			if !ok {
				o, first := t.Finish("broadcast ended without receipt")
				settle(o, first)
				return o
			}

			_, hadHash := t.Hash()
			_, wasSettled := t.Settled()
			o, first := t.Apply(ev)

			// 结果确定后到达的哈希不再通知
			if ev.Kind == KindHash && !hadHash && !wasSettled && hooks.Submitted != nil {
				hooks.Submitted(ev.Hash)
			}
			settle(o, first)

			if ev.Kind == KindConfirmation && ev.Confirmations > lastConfirmations {
				lastConfirmations = ev.Confirmations
				if hooks.Confirmation != nil {
					hooks.Confirmation(ev.Hash, ev.Confirmations)
				}
			}
		}
	}
}
