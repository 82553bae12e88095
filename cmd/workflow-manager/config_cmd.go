// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/molaco/workflow-manager/pkg/planner"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage workflow-manager configuration and secrets",
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Save the planner API key to the system keyring",
	Long: `Save the Anthropic API key used by the execution planner to the
system's secure credential storage (Keychain on macOS, Credential
Manager on Windows, Secret Service on Linux). The key is prompted for
without echo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), "API key: ")
		key, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if len(key) == 0 {
			return fmt.Errorf("empty key")
		}
		if err := planner.StoreAPIKey(string(key)); err != nil {
			return fmt.Errorf("store key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
		return nil
	},
}

var configGetKeyCmd = &cobra.Command{
	Use:   "get-key",
	Short: "Check whether a planner API key is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := planner.APIKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "key present (%d chars)\n", len(key))
		return nil
	},
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the planner API key from the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := planner.DeleteAPIKey(); err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configGetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
}
