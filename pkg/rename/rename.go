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

// Package rename renames the immediate subdirectories of a target directory
// according to an old-name to new-name map.
package rename

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/flatr/pkg/flatlog"
)

// Map maps old directory names to new ones.
type Map map[string]string

// 📊 Summary counts what one rename pass did.
type Summary struct {
	Inspected int // subdirectories looked at
	Renamed   int // successfully renamed
	Skipped   int // no mapping, target existed, or rename failed
}

// 🏃 Subdirectories renames targetDir's immediate subdirectories per m.
// A rename whose target already exists is skipped with a warning, as is a
// rename that fails at the filesystem; neither aborts the pass. The
// returned error is non-nil only when targetDir itself cannot be read.
func Subdirectories(ctx context.Context, targetDir string, m Map) (Summary, error) {
	logger := zerolog.Ctx(ctx)
	ulog := flatlog.FromContext(ctx)

	var summary Summary
	if len(m) == 0 {
		return summary, errors.New("rename map is empty")
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return summary, errors.Errorf("reading directory %s: %w", targetDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary.Inspected++

		newName, ok := m[entry.Name()]
		if !ok {
			logger.Debug().Str("name", entry.Name()).Msg("no mapping for subdirectory")
			summary.Skipped++
			continue
		}

		oldPath := filepath.Join(targetDir, entry.Name())
		newPath := filepath.Join(targetDir, newName)

		if _, err := os.Stat(newPath); err == nil {
			ulog.Warningf("skipping rename of %q: target %q already exists", entry.Name(), newName)
			summary.Skipped++
			continue
		}

		if err := os.Rename(oldPath, newPath); err != nil {
			ulog.Errorf("renaming %q to %q: %v", entry.Name(), newName, err)
			summary.Skipped++
			continue
		}

		logger.Info().Str("old", entry.Name()).Str("new", newName).Msg("renamed subdirectory")
		summary.Renamed++
	}

	return summary, nil
}
