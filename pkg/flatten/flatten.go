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

// Package flatten implements the recursive directory-flattening traversal.
//
// A chain of directories that each contain exactly one subdirectory and no
// files is collapsed into a single destination directory whose name is the
// chain's names joined by the configured separator, so
// extracted/payload/data becomes extracted++payload++data. Directories with
// files or with sibling subdirectories are materialized as-is. File
// transfers within one directory run concurrently; sibling directories are
// processed one at a time, fail-fast.
package flatten

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/flatr/pkg/config"
	"github.com/walteh/flatr/pkg/flatlog"
	"github.com/walteh/flatr/pkg/sanitize"
	"github.com/walteh/flatr/pkg/transfer"
)

// 📊 Stats counts what a run did. Counters are atomic: file transfers
// update them from worker goroutines.
type Stats struct {
	FilesTransferred atomic.Int64
	DirsMaterialized atomic.Int64
	DirsCollapsed    atomic.Int64
	DirsSkipped      atomic.Int64
}

// 🌳 Flattener flattens one source tree into one destination tree.
//
// Sibling directories that sanitize to the same final name land in the same
// destination directory, and files with equal names overwrite each other
// (last write wins). That is a caller error, not something the traversal
// detects.
type Flattener struct {
	cfg        *config.RunConfiguration
	sourceRoot string
	destRoot   string
	stats      Stats

	// worker is swappable so tests can observe and fail transfers.
	worker transfer.WorkerFunc
}

// 🏭 New creates a Flattener for one run. Both roots are made absolute so
// the root special case and relative display paths are stable.
func New(cfg *config.RunConfiguration, sourceRoot, destRoot string) (*Flattener, error) {
	srcAbs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, errors.Errorf("resolving source root: %w", err)
	}
	dstAbs, err := filepath.Abs(destRoot)
	if err != nil {
		return nil, errors.Errorf("resolving destination root: %w", err)
	}

	f := &Flattener{
		cfg:        cfg,
		sourceRoot: srcAbs,
		destRoot:   dstAbs,
	}
	f.worker = func(ctx context.Context, task transfer.Task) transfer.Outcome {
		return transfer.Transfer(ctx, task, cfg.Action, cfg.VerifyHash)
	}
	return f, nil
}

// 📊 Stats returns the run counters.
func (f *Flattener) Stats() *Stats {
	return &f.stats
}

// 🏃 Run flattens the source root into the destination root. It returns nil
// only if every file transfer at every visited level succeeded.
func (f *Flattener) Run(ctx context.Context) error {
	info, err := os.Stat(f.sourceRoot)
	if err != nil {
		return errors.Errorf("source root %s: %w", f.sourceRoot, err)
	}
	if !info.IsDir() {
		return errors.Errorf("source root %s is not a directory", f.sourceRoot)
	}
	if err := os.MkdirAll(f.destRoot, 0o755); err != nil {
		return errors.Errorf("creating destination root %s: %w", f.destRoot, err)
	}
	return f.flattenDir(ctx, f.sourceRoot, f.destRoot, "")
}

// flattenDir is one recursion frame: sourcePath is the directory being
// inspected, destParent is where a materialized directory would be created,
// and accumulated carries the compound name built by collapse steps above
// this frame (empty when no collapsing has begun).
func (f *Flattener) flattenDir(ctx context.Context, sourcePath, destParent, accumulated string) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("source", sourcePath).
		Str("accumulated", accumulated).
		Msg("processing source directory")

	if accumulated != "" {
		accumulated = sanitize.Apply(ctx, accumulated, f.cfg.Rules)
	}

	childDirs, childFiles, err := f.listChildren(ctx, sourcePath)
	if err != nil {
		return errors.Errorf("reading contents of %s: %w", sourcePath, err)
	}

	// The original root is always processed as branch/terminal: its own
	// name never becomes part of a destination name, so it never starts a
	// collapse chain either.
	atRoot := sourcePath == f.sourceRoot && accumulated == ""

	// Collapse: exactly one subdirectory and no files at this level. The
	// level contributes only its name; no destination directory is created
	// for it.
	if !atRoot && len(childDirs) == 1 && len(childFiles) == 0 {
		base := accumulated
		if base == "" {
			base = filepath.Base(sourcePath)
		}
		merged := base + f.cfg.Separator + filepath.Base(childDirs[0])

		logger.Debug().
			Str("from", filepath.Base(sourcePath)).
			Str("into", filepath.Base(childDirs[0])).
			Str("accumulated", merged).
			Msg("collapsing single-child directory")
		f.stats.DirsCollapsed.Add(1)

		return f.flattenDir(ctx, childDirs[0], destParent, merged)
	}

	// Branch or terminal: materialize a destination directory, except at
	// the original root, whose contents land directly in the destination
	// root rather than under a folder named after the root itself.
	destDir := destParent
	if !atRoot {
		finalName := accumulated
		if finalName == "" {
			finalName = filepath.Base(sourcePath)
		}
		finalName = sanitize.Apply(ctx, finalName, f.cfg.Rules)

		if finalName == "" {
			flatlog.FromContext(ctx).Warningf(
				"sanitized name for %q is empty, skipping directory", sourcePath)
			logger.Warn().Str("source", sourcePath).Msg("empty sanitized directory name, skipped")
			f.stats.DirsSkipped.Add(1)
			return nil
		}

		destDir = filepath.Join(destParent, finalName)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return errors.Errorf("creating directory %s: %w", destDir, err)
		}
		f.stats.DirsMaterialized.Add(1)
	}

	if err := f.transferLevel(ctx, sourcePath, destDir, childFiles); err != nil {
		// Fail fast: subdirectories of a failed level are never visited.
		return err
	}

	// Each subdirectory restarts its own collapse chain under the
	// directory materialized here. Siblings run one at a time, in listing
	// order, and the first failure stops the remaining ones.
	for _, dir := range childDirs {
		if err := f.flattenDir(ctx, dir, destDir, ""); err != nil {
			return err
		}
	}
	return nil
}

// transferLevel dispatches this level's files to the worker pool and waits
// at the barrier.
func (f *Flattener) transferLevel(ctx context.Context, sourcePath, destDir string, childFiles []string) error {
	if len(childFiles) == 0 {
		return nil
	}

	tasks := make([]transfer.Task, 0, len(childFiles))
	for _, file := range childFiles {
		destPath := filepath.Join(destDir, filepath.Base(file))
		rel, relErr := filepath.Rel(f.destRoot, destPath)
		if relErr != nil {
			rel = destPath
		}
		tasks = append(tasks, transfer.Task{
			SourcePath:      file,
			DestinationPath: destPath,
			RelativePath:    filepath.ToSlash(rel),
		})
	}

	ulog := flatlog.FromContext(ctx)
	if relDir, err := filepath.Rel(f.destRoot, destDir); err == nil {
		ulog.StartDirectory(ctx, filepath.ToSlash(relDir), len(tasks))
	}

	outcomes, err := transfer.RunAll(ctx, tasks, f.cfg.WorkerCount, f.worker)
	for _, outcome := range outcomes {
		if outcome.Success {
			f.stats.FilesTransferred.Add(1)
		}
		ulog.LogTransfer(ctx, flatlog.Transfer{
			Path:     outcome.Task.RelativePath,
			Action:   string(f.cfg.Action),
			Verified: f.cfg.VerifyHash,
			Failed:   !outcome.Success,
			Detail:   outcome.Detail,
		})
	}
	if err != nil {
		return errors.Errorf("transferring files of %s: %w", sourcePath, err)
	}
	return nil
}

// listChildren partitions sourcePath's immediate children into
// subdirectories and regular files, dropping files matched by an ignore
// pattern. Symlinks are classified by their target, so a linked file or
// directory flattens like anything else; links that cannot be resolved
// are skipped. Entries come back in listing (lexical) order.
func (f *Flattener) listChildren(ctx context.Context, sourcePath string) (dirs, files []string, err error) {
	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range entries {
		path := filepath.Join(sourcePath, entry.Name())
		isDir, isFile := entry.IsDir(), entry.Type().IsRegular()
		if entry.Type()&os.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				zerolog.Ctx(ctx).Warn().
					Str("path", path).
					Err(statErr).
					Msg("skipping unresolvable symlink")
				continue
			}
			isDir, isFile = info.IsDir(), info.Mode().IsRegular()
		}
		switch {
		case isDir:
			dirs = append(dirs, path)
		case isFile:
			if f.ignored(ctx, path) {
				continue
			}
			files = append(files, path)
		}
	}
	return dirs, files, nil
}

// ignored reports whether the file's source-root-relative path matches any
// configured ignore glob.
func (f *Flattener) ignored(ctx context.Context, path string) bool {
	if len(f.cfg.IgnorePatterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(f.sourceRoot, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range f.cfg.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			zerolog.Ctx(ctx).Debug().
				Str("file", rel).
				Str("pattern", pattern).
				Msg("file ignored by pattern")
			return true
		}
	}
	return false
}
