// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package secrets stores provider credentials in the OS keyring and resolves
// keyring:// references in configuration.
package secrets

// ServiceName is the keyring service docintel stores its secrets under.
const ServiceName = "docintel"

// Store is a secret backend keyed by service and key.
type Store interface {
	Store(service, key, value string) error
	// Retrieve returns an error with code config.secret.not_found when the
	// key does not exist. Delete behaves the same way.
	Retrieve(service, key string) (string, error)
	Delete(service, key string) error
	List(service string) ([]string, error)
}
