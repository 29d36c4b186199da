// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// indexSuffix names the entry holding a service's key list; the keyring API
// cannot enumerate keys itself.
const indexSuffix = "::index"

// KeyringStore is a Store on top of the OS keyring (Keychain, Secret Service
// or Credential Manager).
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

func NewKeyringStore() *KeyringStore { return &KeyringStore{} }

func checkRef(op, service, key string) error {
	if service == "" || key == "" {
		return sigilerr.Errorf(sigilerr.CodeConfigSecretInvalidInput, "secret %s: service and key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkRef("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeConfigSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkRef("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", sigilerr.Errorf(sigilerr.CodeConfigSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", sigilerr.Wrapf(err, sigilerr.CodeConfigSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return sigilerr.Errorf(sigilerr.CodeConfigSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeConfigSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

// List returns the key names stored under service, in insertion order.
func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigSecretListFailure, "loading key index for %s", service)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", "service", service, "error", err)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeConfigSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeConfigSecretListFailure, "saving key index for %s", service)
	}
	return nil
}
