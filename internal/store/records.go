package store

import (
	"encoding/json"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/model"
)

const controllerKey = "state"

func get[T any](tx Tx, kind Kind, key string) (T, bool, error) {
	var v T
	raw, ok, err := tx.Get(kind, key)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s %s: %w", kind, key, err)
	}
	return v, true, nil
}

func put(tx Tx, kind Kind, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, key, err)
	}
	return tx.Put(kind, key, raw)
}

func list[T any](tx Tx, kind Kind, prefix string) ([]T, error) {
	var out []T
	err := tx.Scan(kind, prefix, func(key string, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode %s %s: %w", kind, key, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// GetToken loads a token record.
func GetToken(tx Tx, addr model.Address) (model.Token, bool, error) {
	t, ok, err := get[model.Token](tx, KindToken, addr.String())
	if ok {
		t.Normalize()
	}
	return t, ok, err
}

// PutToken stores a token record.
func PutToken(tx Tx, t model.Token) error {
	return put(tx, KindToken, t.Address.String(), t)
}

// ListTokens returns every token ever listed, supported or not.
func ListTokens(tx Tx) ([]model.Token, error) {
	tokens, err := list[model.Token](tx, KindToken, "")
	for i := range tokens {
		tokens[i].Normalize()
	}
	return tokens, err
}

// GetAccount loads an account. A missing account comes back empty with its
// key set.
func GetAccount(tx Tx, key model.AccountKey) (model.Account, bool, error) {
	a, ok, err := get[model.Account](tx, KindAccount, key.String())
	if err != nil {
		return model.Account{}, false, err
	}
	a.Key = key
	a.Normalize()
	return a, ok, nil
}

// PutAccount stores an account.
func PutAccount(tx Tx, a model.Account) error {
	return put(tx, KindAccount, a.Key.String(), a)
}

// ListClientAccounts returns every account of a client.
func ListClientAccounts(tx Tx, clientID model.ID) ([]model.Account, error) {
	accounts, err := list[model.Account](tx, KindAccount, clientID.String()+"/")
	for i := range accounts {
		accounts[i].Normalize()
	}
	return accounts, err
}

// GetClient loads a client.
func GetClient(tx Tx, id model.ID) (model.Client, bool, error) {
	return get[model.Client](tx, KindClient, id.String())
}

// PutClient stores a client.
func PutClient(tx Tx, c model.Client) error {
	return put(tx, KindClient, c.ID.String(), c)
}

// ListClients returns every registered client.
func ListClients(tx Tx) ([]model.Client, error) {
	return list[model.Client](tx, KindClient, "")
}

func tierVaultKey(token model.Address, tierID model.ID) string {
	return token.String() + "/" + tierID.String()
}

// GetTierVault loads the tier vault state of (token, tierID).
func GetTierVault(tx Tx, token model.Address, tierID model.ID) (model.TierVaultState, bool, error) {
	s, ok, err := get[model.TierVaultState](tx, KindTierVault, tierVaultKey(token, tierID))
	if ok {
		s.Index = model.OrZero(s.Index)
	}
	return s, ok, err
}

// PutTierVault stores a tier vault state.
func PutTierVault(tx Tx, s model.TierVaultState) error {
	return put(tx, KindTierVault, tierVaultKey(s.Token, s.TierID), s)
}

// IsWhitelisted reports whether protocol may receive pooled funds.
func IsWhitelisted(tx Tx, protocol model.Address) (bool, error) {
	ok, _, err := get[bool](tx, KindProtocol, protocol.String())
	return ok, err
}

// SetWhitelisted records the whitelist flag of protocol.
func SetWhitelisted(tx Tx, protocol model.Address, whitelisted bool) error {
	return put(tx, KindProtocol, protocol.String(), whitelisted)
}

// ListWhitelisted returns every currently whitelisted protocol.
func ListWhitelisted(tx Tx) ([]model.Address, error) {
	var out []model.Address
	err := tx.Scan(KindProtocol, "", func(key string, raw []byte) error {
		if strings.TrimSpace(string(raw)) != "true" {
			return nil
		}
		addr, err := model.ParseAddress(key)
		if err != nil {
			return err
		}
		out = append(out, addr)
		return nil
	})
	return out, err
}

// GetTierProtocols returns the protocols assigned to a tier.
func GetTierProtocols(tx Tx, tierID model.ID) ([]model.Address, error) {
	v, _, err := get[[]model.Address](tx, KindTierProtocols, tierID.String())
	return v, err
}

// PutTierProtocols stores the protocols assigned to a tier.
func PutTierProtocols(tx Tx, tierID model.ID, protocols []model.Address) error {
	return put(tx, KindTierProtocols, tierID.String(), protocols)
}

// GetRevenue returns the fee accumulators of token, zeroed when absent.
func GetRevenue(tx Tx, token model.Address) (model.RevenueBalances, error) {
	r, ok, err := get[model.RevenueBalances](tx, KindRevenue, token.String())
	if err != nil {
		return r, err
	}
	if !ok {
		return model.NewRevenueBalances(token), nil
	}
	r.Normalize()
	return r, nil
}

// PutRevenue stores the fee accumulators of a token.
func PutRevenue(tx Tx, r model.RevenueBalances) error {
	return put(tx, KindRevenue, r.Token.String(), r)
}

func clientRevenueKey(clientID model.ID, token model.Address) string {
	return clientID.String() + "/" + token.String()
}

// GetClientRevenue returns the revenue owed to a client in token.
func GetClientRevenue(tx Tx, clientID model.ID, token model.Address) (sdkmath.Int, error) {
	r, ok, err := get[model.ClientRevenue](tx, KindClientRevenue, clientRevenueKey(clientID, token))
	if err != nil || !ok {
		return sdkmath.ZeroInt(), err
	}
	return model.OrZero(r.Amount), nil
}

// PutClientRevenue stores the revenue owed to a client in token.
func PutClientRevenue(tx Tx, clientID model.ID, token model.Address, amount sdkmath.Int) error {
	return put(tx, KindClientRevenue, clientRevenueKey(clientID, token), model.ClientRevenue{
		ClientID: clientID,
		Token:    token,
		Amount:   amount,
	})
}

// GetControllerState loads the treasury controller state.
func GetControllerState(tx Tx) (model.ControllerState, error) {
	s, _, err := get[model.ControllerState](tx, KindController, controllerKey)
	s.Window.Transferred = model.OrZero(s.Window.Transferred)
	return s, err
}

// PutControllerState stores the treasury controller state.
func PutControllerState(tx Tx, s model.ControllerState) error {
	return put(tx, KindController, controllerKey, s)
}

// GetCustodyPool returns the pooled custody balance of token.
func GetCustodyPool(tx Tx, token model.Address) (sdkmath.Int, error) {
	b, ok, err := get[model.CustodyBalance](tx, KindCustodyPool, token.String())
	if err != nil || !ok {
		return sdkmath.ZeroInt(), err
	}
	return model.OrZero(b.Amount), nil
}

// PutCustodyPool stores the pooled custody balance of token.
func PutCustodyPool(tx Tx, token model.Address, amount sdkmath.Int) error {
	return put(tx, KindCustodyPool, token.String(), model.CustodyBalance{Token: token, Amount: amount})
}

func payoutKey(token, to model.Address) string {
	return token.String() + "/" + to.String()
}

// GetCustodyPayout returns the total of token paid out to to.
func GetCustodyPayout(tx Tx, token, to model.Address) (sdkmath.Int, error) {
	b, ok, err := get[model.CustodyBalance](tx, KindCustodyPayout, payoutKey(token, to))
	if err != nil || !ok {
		return sdkmath.ZeroInt(), err
	}
	return model.OrZero(b.Amount), nil
}

// PutCustodyPayout stores the total of token paid out to to.
func PutCustodyPayout(tx Tx, token, to model.Address, amount sdkmath.Int) error {
	return put(tx, KindCustodyPayout, payoutKey(token, to), model.CustodyBalance{Token: token, Holder: to, Amount: amount})
}

func roleGrantKey(role string, addr model.Address) string {
	return role + "/" + addr.String()
}

// PutRoleGrant stores the latest runtime grant or revocation of role for an
// address.
func PutRoleGrant(tx Tx, g model.RoleGrant) error {
	return put(tx, KindRoleGrant, roleGrantKey(g.Role, g.Address), g)
}

// ListRoleGrants returns every stored role change.
func ListRoleGrants(tx Tx) ([]model.RoleGrant, error) {
	return list[model.RoleGrant](tx, KindRoleGrant, "")
}
