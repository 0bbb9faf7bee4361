// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/flatr/pkg/sanitize"
)

// 🔧 Action selects what happens to each source file.
type Action string

const (
	ActionCopy Action = "copy"
	ActionMove Action = "move"
)

// DefaultSeparator joins collapsed directory names.
const DefaultSeparator = "++"

// 🎯 ParseAction parses a user-supplied action string
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCopy:
		return ActionCopy, nil
	case ActionMove:
		return ActionMove, nil
	default:
		return "", errors.Errorf("invalid action %q (must be %q or %q)", s, ActionCopy, ActionMove)
	}
}

// 📚 RunConfiguration holds everything a single flattening run needs. It is
// built once at startup and passed by pointer; nothing mutates it after
// Validate, so it is safe to share across workers without synchronization.
type RunConfiguration struct {
	Action         Action
	VerifyHash     bool
	Separator      string
	WorkerCount    int
	Rules          []sanitize.Rule
	IgnorePatterns []string
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *RunConfiguration) Validate() error {
	if _, err := ParseAction(string(cfg.Action)); err != nil {
		return err
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	if cfg.WorkerCount < 1 {
		return errors.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	for _, pattern := range cfg.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return nil
}

// 📝 String returns a short human-readable summary of the run
func (cfg *RunConfiguration) String() string {
	verify := ""
	if cfg.VerifyHash {
		verify = ", sha256 verify"
	}
	return fmt.Sprintf("%s (%d workers, separator %q, %d rules%s)",
		cfg.Action, cfg.WorkerCount, cfg.Separator, len(cfg.Rules), verify)
}
