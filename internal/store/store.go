// Package store is the keyed record arena behind the ledger. Every mutation
// runs inside Store.Atomic, which commits all writes of the callback or none.
package store

import (
	"context"
	"errors"
)

// Kind partitions records by type.
type Kind string

const (
	KindToken         Kind = "token"
	KindAccount       Kind = "account"
	KindClient        Kind = "client"
	KindTierVault     Kind = "tier_vault"
	KindTierProtocols Kind = "tier_protocols"
	KindProtocol      Kind = "protocol"
	KindRevenue       Kind = "revenue"
	KindClientRevenue Kind = "client_revenue"
	KindController    Kind = "controller"
	KindCustodyPool   Kind = "custody_pool"
	KindCustodyPayout Kind = "custody_payout"
	KindRoleGrant     Kind = "role_grant"
)

// ErrReadOnly is returned by Put inside View.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// Tx is the view of the arena inside one transaction. Reads observe the
// transaction's own earlier writes.
type Tx interface {
	Get(kind Kind, key string) ([]byte, bool, error)
	Put(kind Kind, key string, value []byte) error
	// Scan visits records of kind whose key starts with prefix, in key order.
	Scan(kind Kind, prefix string, fn func(key string, value []byte) error) error
}

// Store runs transactions over the arena.
type Store interface {
	// Atomic runs fn and commits its writes only if fn returns nil. A panic
	// inside fn discards the writes and propagates.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
