/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/huginn_dj/internal/auth"
	"github.com/friendsincode/huginn_dj/internal/db"
)

var apikeyExpiresDays int

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new API key",
	Long: `Create a new API key and print it once.

The plaintext key is not stored; only a hash is kept. Copy it now.
`,
	Args: cobra.ExactArgs(1),
	RunE: runAPIKeyCreate,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	RunE:  runAPIKeyList,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	apikeyCreateCmd.Flags().IntVar(&apikeyExpiresDays, "expires-days", 365, "Days until the key expires")
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyListCmd, apikeyRevokeCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	plaintext, key, err := auth.GenerateAPIKey(args[0], time.Duration(apikeyExpiresDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := database.Create(key).Error; err != nil {
		return fmt.Errorf("persist key: %w", err)
	}

	fmt.Printf("API key created (shown once, store it now):\n\n  %s\n\n", plaintext)
	fmt.Printf("id:         %s\n", key.ID)
	fmt.Printf("name:       %s\n", key.Name)
	fmt.Printf("expires at: %s\n", key.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	keys, err := auth.ListAPIKeys(database)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	if len(keys) == 0 {
		fmt.Println("no API keys")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-20s  %s\n", "ID", "NAME", "EXPIRES", "REVOKED")
	for _, k := range keys {
		revoked := ""
		if k.RevokedAt != nil {
			revoked = k.RevokedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-20s  %-20s  %s\n", k.ID, k.Name, k.ExpiresAt.Format("2006-01-02 15:04"), revoked)
	}
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := auth.RevokeAPIKey(database, args[0]); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	fmt.Printf("key %s revoked\n", args[0])
	return nil
}
