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

package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/walteh/flatr/pkg/config"
)

// 📄 Task is one file waiting to be transferred into the flattened tree.
type Task struct {
	SourcePath      string // absolute path of the source file
	DestinationPath string // absolute path the file will land at
	RelativePath    string // destination-root-relative path, for display
}

// 📊 Outcome is the result of transferring one Task. Workers report every
// fault through Outcome; they never return errors or panic across the
// package boundary.
type Outcome struct {
	Task    Task
	Success bool
	Detail  string // human-readable failure detail, empty on success
}

func failf(task Task, format string, args ...any) Outcome {
	return Outcome{Task: task, Detail: fmt.Sprintf(format, args...)}
}

// 🏃 Transfer copies or moves one file according to action, optionally
// verifying the destination's sha256 against the source's.
func Transfer(ctx context.Context, task Task, action config.Action, verify bool) Outcome {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("source", task.SourcePath).
		Str("destination", task.DestinationPath).
		Str("action", string(action)).
		Bool("verify", verify).
		Msg("transferring file")

	switch action {
	case config.ActionCopy:
		return copyFile(task, verify)
	case config.ActionMove:
		return moveFile(task, verify)
	default:
		return failf(task, "unknown action %q", action)
	}
}

// copyFile copies the source to the destination. With verification the
// source hash is computed in the same read pass that streams bytes to the
// destination, then the destination is independently re-hashed and compared.
func copyFile(task Task, verify bool) Outcome {
	if !verify {
		if err := copyPlain(task.SourcePath, task.DestinationPath); err != nil {
			return failf(task, "copying %s: %v", task.RelativePath, err)
		}
		return Outcome{Task: task, Success: true}
	}

	sourceSum, err := copyAndHash(task.SourcePath, task.DestinationPath)
	if err != nil {
		return failf(task, "copying %s: %v", task.RelativePath, err)
	}
	destSum, err := rehashFile(task.DestinationPath)
	if err != nil {
		return failf(task, "hashing copied %s: %v", task.RelativePath, err)
	}
	if sourceSum != destSum {
		// The mismatched destination is kept as evidence, not rolled back.
		return failf(task, "hash mismatch for copied %s: source %s, destination %s",
			task.RelativePath, sourceSum, destSum)
	}
	return Outcome{Task: task, Success: true}
}

// moveFile moves the source to the destination. The source hash has to be
// taken before the move, since the source is gone afterward. The move is an
// atomic rename where the filesystem allows it, with a copy-and-delete
// fallback for cross-device moves.
func moveFile(task Task, verify bool) Outcome {
	var sourceSum string
	if verify {
		var err error
		sourceSum, err = HashFile(task.SourcePath)
		if err != nil {
			return failf(task, "hashing %s before move: %v", task.RelativePath, err)
		}
	}

	if renameErr := os.Rename(task.SourcePath, task.DestinationPath); renameErr != nil {
		if copyErr := copyPlain(task.SourcePath, task.DestinationPath); copyErr != nil {
			return failf(task, "moving %s: %v (rename: %v)", task.RelativePath, copyErr, renameErr)
		}
		if err := os.Remove(task.SourcePath); err != nil {
			return failf(task, "removing source of moved %s: %v", task.RelativePath, err)
		}
	}

	if verify {
		destSum, err := rehashFile(task.DestinationPath)
		if err != nil {
			return failf(task, "hashing moved %s: %v", task.RelativePath, err)
		}
		if sourceSum != destSum {
			// Destination kept as evidence; the source is not restored.
			return failf(task, "hash mismatch for moved %s: source %s, destination %s",
				task.RelativePath, sourceSum, destSum)
		}
	}
	return Outcome{Task: task, Success: true}
}

// copyAndHash streams src into dst, feeding the sha256 hasher from the same
// read pass, then copies the source's mode and timestamps onto dst.
func copyAndHash(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if err := copyMetadata(src, dst); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyPlain copies src to dst preserving mode and timestamps, without
// hashing.
func copyPlain(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return copyMetadata(src, dst)
}

func copyMetadata(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	mtime := info.ModTime()
	return os.Chtimes(dst, mtime, mtime)
}

// rehashFile re-reads a freshly written destination for verification.
// Package tests swap it to drive the mismatch paths.
var rehashFile = HashFile

// 🔑 HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
