// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/docintel/internal/secrets"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store, list and delete API keys kept under the docintel service in the operating system keyring. " +
			"Reference a stored key from the config as keyring://docintel/<name>.",
		// Keyring access needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin or --value",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
	set.Flags().String("value", "", "secret value (read from stdin when omitted)")

	cmd.AddCommand(
		set,
		&cobra.Command{
			Use:   "list",
			Short: "List all stored secret names",
			Args:  cobra.NoArgs,
			RunE:  runSecretList,
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a secret by name",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretDelete,
		},
	)
	return cmd
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, _ := cmd.Flags().GetString("value")
	if value == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "reading secret from stdin: %v", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	if value == "" {
		return sigilerr.New(sigilerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Store(secrets.ServiceName, name, value); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s; reference it as %s\n", name, secrets.URI(name))
	return err
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.ServiceName)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeConfigSecretListFailure, "listing secrets: %v", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}
	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := secretStoreFactory().Delete(secrets.ServiceName, name); err != nil {
		if sigilerr.HasCode(err, sigilerr.CodeConfigSecretNotFound) {
			return sigilerr.Errorf(sigilerr.CodeConfigSecretNotFound, "secret %q not found", name)
		}
		return sigilerr.Errorf(sigilerr.CodeConfigSecretDeleteFailure, "deleting secret %q: %v", name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
