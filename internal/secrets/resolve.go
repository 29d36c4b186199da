// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"strings"

	"github.com/spf13/viper"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

const scheme = "keyring://"

// IsKeyringURI reports whether value is a keyring:// reference.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// URI returns the keyring:// reference for key under ServiceName.
func URI(key string) string {
	return scheme + ServiceName + "/" + key
}

// ParseKeyringURI splits keyring://service/key. The key may contain slashes.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", sigilerr.Errorf(sigilerr.CodeConfigSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", sigilerr.Errorf(sigilerr.CodeConfigSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring:// value points at. Other values are
// returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", sigilerr.Wrapf(err, sigilerr.CodeConfigSecretResolveFailure, "resolving %s", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring:// string in v with its secret. All
// failures are reported together, each naming its config key.
func ResolveViper(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsKeyringURI(val) {
			continue
		}
		secret, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigSecretResolveFailure, "%s: %v", key, err))
			continue
		}
		v.Set(key, secret)
	}
	if len(errs) == 0 {
		return nil
	}
	return sigilerr.Errorf(sigilerr.CodeConfigSecretResolveFailure, "resolving secrets: %v", joinMessages(errs))
}

func joinMessages(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
