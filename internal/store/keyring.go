package store

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Keyring stores values in the OS secret service under one service name.
type Keyring struct {
	Service string
}

func NewKeyring(service string) *Keyring {
	if service == "" {
		service = "sosai"
	}
	return &Keyring{Service: service}
}

func (k *Keyring) Get(key string) (string, error) {
	v, err := keyring.Get(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (k *Keyring) Set(key, value string) error {
	return keyring.Set(k.Service, key, value)
}

func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
