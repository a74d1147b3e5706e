package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

type Name string

const (
	LoginSuccessful      Name = "loginSuccessful"
	TransactionSubmitted Name = "transactionSubmitted"
	TransactionSuccess   Name = "transactionSuccess"
	TransactionFailed    Name = "transactionFailed"
	TransactionComplete  Name = "transactionComplete"
)

// Event is a data notification for the host. It never carries key material.
type Event struct {
	Name Name      `json:"name"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

type Login struct {
	SafleID  string `json:"safleId"`
	IsMobile bool   `json:"isMobile"`
	Accounts int    `json:"accounts"`
}

type Submitted struct {
	Hash        common.Hash `json:"hash"`
	ChainID     int64       `json:"chainId"`
	ExplorerURL string      `json:"explorerUrl,omitempty"`
}

type Result struct {
	Hash    common.Hash    `json:"hash"`
	ChainID int64          `json:"chainId"`
	Receipt *types.Receipt `json:"receipt,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// Bus fans events out to subscribers. Publish blocks until every subscriber
// has received the event, so subscribers must keep draining their channel.
type Bus struct {
	feed event.Feed
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Publish returns the number of subscribers that received the event.
func (b *Bus) Publish(name Name, data any) int {
	return b.feed.Send(Event{Name: name, Data: data, At: b.now()})
}

func (b *Bus) Subscribe(ch chan<- Event) event.Subscription {
	return b.feed.Subscribe(ch)
}
