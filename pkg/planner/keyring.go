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
package planner

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name API keys are stored under in the OS
// credential store (Keychain on macOS, Secret Service on Linux,
// Credential Manager on Windows).
const KeyringService = "workflow-manager"

// KeyringAnthropicKey is the account name of the Anthropic API key.
const KeyringAnthropicKey = "anthropic-api-key"

// APIKey resolves the Anthropic API key: the ANTHROPIC_API_KEY
// environment variable wins, then the OS keyring. An empty return with a
// nil error never happens; a key found nowhere is an error so callers
// can tell the user where to put one.
func APIKey() (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	key, err := keyring.Get(KeyringService, KeyringAnthropicKey)
	if err != nil {
		return "", fmt.Errorf("planner: no API key in ANTHROPIC_API_KEY or the OS keyring (store one with `workflow-manager config set-key %s`): %w", KeyringAnthropicKey, err)
	}
	return key, nil
}

// StoreAPIKey saves the Anthropic API key in the OS keyring.
func StoreAPIKey(value string) error {
	return keyring.Set(KeyringService, KeyringAnthropicKey, value)
}

// DeleteAPIKey removes the Anthropic API key from the OS keyring.
func DeleteAPIKey() error {
	return keyring.Delete(KeyringService, KeyringAnthropicKey)
}
