// Package auth reads the bearer credential the rest of the client borrows per
// request. Login state itself lives with the account screens.
package auth

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"sosai/internal/store"
)

const TokenKey = "sosai.token"

// LegacyTokenKeys are the names older builds stored the token under.
var LegacyTokenKeys = []string{"token", "access_token", "accessToken", "authToken"}

type Provider struct {
	st store.Store
}

// NewProvider moves a token found under a legacy key to TokenKey and removes
// every legacy key. This is the only place legacy names are read.
func NewProvider(st store.Store) (*Provider, error) {
	p := &Provider{st: st}
	if err := p.migrate(); err != nil {
		return nil, fmt.Errorf("migrate token: %w", err)
	}
	return p, nil
}

func (p *Provider) migrate() error {
	_, err := p.st.Get(TokenKey)
	haveCanonical := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	for _, key := range LegacyTokenKeys {
		v, err := p.st.Get(key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		v = strings.TrimSpace(v)
		if !haveCanonical && v != "" {
			if err := p.st.Set(TokenKey, v); err != nil {
				return err
			}
			haveCanonical = true
			log.Info("Migrated token", "from", key)
		}
		if err := p.st.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Token returns the stored credential, if any.
func (p *Provider) Token() (string, bool) {
	v, err := p.st.Get(TokenKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("Failed to read token", "err", err)
		}
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *Provider) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	return p.st.Set(TokenKey, token)
}

func (p *Provider) Clear() error {
	return p.st.Delete(TokenKey)
}
