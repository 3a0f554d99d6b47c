// Package registry holds the token and client registries: supported tokens
// with their vault indices, the protocol whitelist, tenants and risk tiers.
package registry

import (
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/model"
	"YieldVault/internal/store"
)

// Tokens is the TokenRegistry. Its operations run inside a caller-provided
// transaction; the caller holds the token's lock.
type Tokens struct {
	now func() time.Time
}

// NewTokens creates a TokenRegistry using now as its clock.
func NewTokens(now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{now: now}
}

// Get loads a token regardless of its supported flag.
func (r *Tokens) Get(tx store.Tx, addr model.Address) (model.Token, bool, error) {
	return store.GetToken(tx, addr)
}

// RequireSupported loads a token and rejects it unless supported.
func (r *Tokens) RequireSupported(tx store.Tx, addr model.Address) (model.Token, error) {
	tok, ok, err := store.GetToken(tx, addr)
	if err != nil {
		return model.Token{}, err
	}
	if !ok || !tok.Supported {
		return model.Token{}, errorsmod.Wrapf(apperr.ErrTokenNotSupported, "token %s", addr)
	}
	return tok, nil
}

// Add lists a token. A token that was listed before keeps its index, since
// the index never moves backwards once created.
func (r *Tokens) Add(tx store.Tx, addr model.Address) (model.Token, error) {
	if addr.IsZero() {
		return model.Token{}, errorsmod.Wrap(apperr.ErrInvalidAddress, "token address is zero")
	}
	tok, ok, err := store.GetToken(tx, addr)
	if err != nil {
		return model.Token{}, err
	}
	switch {
	case ok && tok.Supported:
		return model.Token{}, errorsmod.Wrapf(apperr.ErrTokenAlreadySupported, "token %s", addr)
	case ok:
		tok.Supported = true
	default:
		tok = model.NewToken(addr, r.now())
	}
	return tok, store.PutToken(tx, tok)
}

// Remove delists a token. Tokens with live deposits cannot be removed.
func (r *Tokens) Remove(tx store.Tx, addr model.Address) error {
	tok, err := r.RequireSupported(tx, addr)
	if err != nil {
		return err
	}
	if tok.TotalDeposits.IsPositive() {
		return errorsmod.Wrapf(apperr.ErrTokenHasDeposits, "token %s holds %s shares", addr, tok.TotalDeposits)
	}
	tok.Supported = false
	return store.PutToken(tx, tok)
}

// SetIndex moves the vault index of a token forward.
func (r *Tokens) SetIndex(tx store.Tx, addr model.Address, newIndex, maxGrowth sdkmath.Int) (model.Token, error) {
	tok, err := r.RequireSupported(tx, addr)
	if err != nil {
		return model.Token{}, err
	}
	if err := CheckIndexUpdate(tok.CurrentIndex, newIndex, maxGrowth); err != nil {
		return model.Token{}, errorsmod.Wrapf(err, "token %s", addr)
	}
	tok.CurrentIndex = newIndex
	tok.IndexUpdatedAt = r.now()
	return tok, store.PutToken(tx, tok)
}

// CheckIndexUpdate validates an index move from current to next. A positive
// maxGrowth caps next at current*maxGrowth/1e18.
func CheckIndexUpdate(current, next, maxGrowth sdkmath.Int) error {
	if next.IsNil() || !next.IsPositive() {
		return errorsmod.Wrap(apperr.ErrInvalidIndex, "index must be positive")
	}
	if next.LT(current) {
		return errorsmod.Wrapf(apperr.ErrIndexDecrease, "new index %s below current %s", next, current)
	}
	if !maxGrowth.IsNil() && maxGrowth.IsPositive() {
		ceiling := model.MulDiv(current, maxGrowth, model.IndexScale)
		if next.GT(ceiling) {
			return errorsmod.Wrapf(apperr.ErrIndexGrowth, "new index %s above ceiling %s", next, ceiling)
		}
	}
	return nil
}

// TierVault loads the tier vault state of (token, tierID).
func (r *Tokens) TierVault(tx store.Tx, token model.Address, tierID model.ID) (model.TierVaultState, error) {
	s, ok, err := store.GetTierVault(tx, token, tierID)
	if err != nil {
		return model.TierVaultState{}, err
	}
	if !ok || !s.Initialized {
		return model.TierVaultState{}, errorsmod.Wrapf(apperr.ErrTierNotInitialized, "tier %s on %s", tierID.Short(), token)
	}
	return s, nil
}

// InitializeTier opens the tier sub-pool of a supported token at index 1.0.
func (r *Tokens) InitializeTier(tx store.Tx, token model.Address, tierID model.ID) (model.TierVaultState, error) {
	if tierID.IsZero() {
		return model.TierVaultState{}, errorsmod.Wrap(apperr.ErrInvalidTier, "tier id is zero")
	}
	if _, err := r.RequireSupported(tx, token); err != nil {
		return model.TierVaultState{}, err
	}
	s, ok, err := store.GetTierVault(tx, token, tierID)
	if err != nil {
		return model.TierVaultState{}, err
	}
	if ok && s.Initialized {
		return model.TierVaultState{}, errorsmod.Wrapf(apperr.ErrTierInitialized, "tier %s on %s", tierID.Short(), token)
	}
	s = model.TierVaultState{
		Token:       token,
		TierID:      tierID,
		Index:       model.IndexScale,
		UpdatedAt:   r.now(),
		Initialized: true,
	}
	return s, store.PutTierVault(tx, s)
}

// SetTierIndex moves a tier sub-pool index forward.
func (r *Tokens) SetTierIndex(tx store.Tx, token model.Address, tierID model.ID, newIndex, maxGrowth sdkmath.Int) (model.TierVaultState, error) {
	if _, err := r.RequireSupported(tx, token); err != nil {
		return model.TierVaultState{}, err
	}
	s, err := r.TierVault(tx, token, tierID)
	if err != nil {
		return model.TierVaultState{}, err
	}
	if err := CheckIndexUpdate(s.Index, newIndex, maxGrowth); err != nil {
		return model.TierVaultState{}, errorsmod.Wrapf(err, "tier %s", tierID.Short())
	}
	s.Index = newIndex
	s.UpdatedAt = r.now()
	return s, store.PutTierVault(tx, s)
}

// Whitelist allows protocol to receive pooled funds.
func (r *Tokens) Whitelist(tx store.Tx, protocol model.Address) error {
	if protocol.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidAddress, "protocol address is zero")
	}
	ok, err := store.IsWhitelisted(tx, protocol)
	if err != nil {
		return err
	}
	if ok {
		return errorsmod.Wrapf(apperr.ErrProtocolWhitelisted, "protocol %s", protocol)
	}
	return store.SetWhitelisted(tx, protocol, true)
}

// Unwhitelist removes protocol from the whitelist; it must be whitelisted.
func (r *Tokens) Unwhitelist(tx store.Tx, protocol model.Address) error {
	if err := r.RequireWhitelisted(tx, protocol); err != nil {
		return err
	}
	return store.SetWhitelisted(tx, protocol, false)
}

// RequireWhitelisted rejects protocols that are not whitelisted.
func (r *Tokens) RequireWhitelisted(tx store.Tx, protocol model.Address) error {
	ok, err := store.IsWhitelisted(tx, protocol)
	if err != nil {
		return err
	}
	if !ok {
		return errorsmod.Wrapf(apperr.ErrProtocolNotWhitelisted, "protocol %s", protocol)
	}
	return nil
}

// AssignTierProtocol adds a whitelisted protocol to a tier's strategy set.
func (r *Tokens) AssignTierProtocol(tx store.Tx, tierID model.ID, protocol model.Address) error {
	if tierID.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidTier, "tier id is zero")
	}
	if err := r.RequireWhitelisted(tx, protocol); err != nil {
		return err
	}
	current, err := store.GetTierProtocols(tx, tierID)
	if err != nil {
		return err
	}
	for _, p := range current {
		if p == protocol {
			return errorsmod.Wrapf(apperr.ErrProtocolWhitelisted, "protocol %s already in tier %s", protocol, tierID.Short())
		}
	}
	return store.PutTierProtocols(tx, tierID, append(current, protocol))
}

// RemoveTierProtocol drops a protocol from a tier's strategy set.
func (r *Tokens) RemoveTierProtocol(tx store.Tx, tierID model.ID, protocol model.Address) error {
	current, err := store.GetTierProtocols(tx, tierID)
	if err != nil {
		return err
	}
	kept := current[:0]
	found := false
	for _, p := range current {
		if p == protocol {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return errorsmod.Wrapf(apperr.ErrProtocolNotWhitelisted, "protocol %s not in tier %s", protocol, tierID.Short())
	}
	return store.PutTierProtocols(tx, tierID, kept)
}

// Index returns the current vault index of a supported token.
func (r *Tokens) Index(tx store.Tx, addr model.Address) (sdkmath.Int, error) {
	idx, _, err := r.IndexWithTimestamp(tx, addr)
	return idx, err
}

// IndexWithTimestamp returns the vault index and when it last moved.
func (r *Tokens) IndexWithTimestamp(tx store.Tx, addr model.Address) (sdkmath.Int, time.Time, error) {
	tok, err := r.RequireSupported(tx, addr)
	if err != nil {
		return sdkmath.Int{}, time.Time{}, err
	}
	return tok.CurrentIndex, tok.IndexUpdatedAt, nil
}
