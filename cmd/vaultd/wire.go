package main

import (
	"context"
	"errors"
	"fmt"

	"YieldVault/internal/apperr"
	"YieldVault/internal/config"
	"YieldVault/internal/custody"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/scheduler"
	"YieldVault/internal/store"
	"YieldVault/internal/treasury"
)

type vault struct {
	ctl       *treasury.Controller
	store     store.Store
	tokenMeta map[model.Address]scheduler.TokenMeta
}

func (v *vault) close() {
	if err := v.store.Close(); err != nil {
		logging.Errorf("close store: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == "memory" {
		m, err := store.OpenMemory(cfg.Store.StateFile)
		if err != nil {
			return nil, fmt.Errorf("open state file: %w", err)
		}
		logging.Infof("store: memory, state file %s", cfg.Store.StateFile)
		return m, nil
	}
	s, err := store.OpenSQL(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	logging.Infof("store: %s", cfg.Store.Driver)
	return s, nil
}

// openVault builds the controller over the configured store and lists the
// configured tokens that are not yet supported.
func openVault(ctx context.Context, cfg *config.Config, rec recorder.Recorder, alerts notifier.Notifier) (*vault, error) {
	limits, err := cfg.TreasuryLimits()
	if err != nil {
		return nil, err
	}
	roles, err := cfg.RoleBook()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The book keeps custody balances in the same store as the ledger.
	ctl := treasury.New(st, roles, custody.NewBook(), limits,
		treasury.WithRecorder(rec),
		treasury.WithNotifier(alerts),
		treasury.WithDisplayDecimals(cfg.Limits.DisplayDecimals),
	)
	v := &vault{ctl: ctl, store: st, tokenMeta: make(map[model.Address]scheduler.TokenMeta)}

	n, err := ctl.RestoreRoles(ctx)
	if err != nil {
		v.close()
		return nil, fmt.Errorf("restore roles: %w", err)
	}
	if n > 0 {
		logging.Infof("restored %d runtime role changes", n)
	}

	admin, err := model.ParseAddress(cfg.Roles.Admins[0])
	if err != nil {
		v.close()
		return nil, err
	}
	caller := ctl.Resolve(admin)
	for _, t := range cfg.Tokens {
		addr, err := model.ParseAddress(t.Address)
		if err != nil {
			v.close()
			return nil, err
		}
		v.tokenMeta[addr] = scheduler.TokenMeta{Symbol: t.Symbol, Decimals: t.Decimals}
		err = ctl.AddSupportedToken(ctx, caller, addr)
		switch {
		case err == nil:
			logging.Infof("listed %s at %s", t.Symbol, addr)
		case errors.Is(err, apperr.ErrTokenAlreadySupported):
		default:
			v.close()
			return nil, fmt.Errorf("list %s: %w", t.Symbol, err)
		}
	}
	return v, nil
}
