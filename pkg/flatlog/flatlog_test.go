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

package flatlog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_transfer_ok",
			op: func(t *testing.T, logger *Logger) {
				logger.LogTransfer(context.Background(), Transfer{
					Path:     "A++B/file.txt",
					Action:   "copy",
					Verified: true,
				})
			},
			wantLogs: []string{"✓", "A++B/file.txt", "copy"},
		},
		{
			name: "log_transfer_failed",
			op: func(t *testing.T, logger *Logger) {
				logger.LogTransfer(context.Background(), Transfer{
					Path:   "X/file.bin",
					Action: "move",
					Failed: true,
					Detail: "hash mismatch",
				})
			},
			wantLogs: []string{"✗", "X/file.bin", "move", "hash mismatch"},
		},
		{
			name: "start_directory",
			op: func(t *testing.T, logger *Logger) {
				logger.StartDirectory(context.Background(), "A++B++C", 3)
			},
			wantLogs: []string{"◆", "A++B++C", "3 files"},
		},
		{
			name: "header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("flattening tree")
			},
			wantLogs: []string{"flatr", "flattening tree"},
		},
		{
			name: "warning",
			op: func(t *testing.T, logger *Logger) {
				logger.Warningf("skipping %s", "empty-name")
			},
			wantLogs: []string{"skipping empty-name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, zerolog.Disabled)
			tt.op(t, logger)

			out := buf.String()
			for _, want := range tt.wantLogs {
				assert.True(t, strings.Contains(out, want), "output %q missing %q", out, want)
			}
		})
	}
}

func TestFromContext_Fallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	// Must not panic with no console attached.
	logger.Info("discarded")
	logger.LogTransfer(context.Background(), Transfer{Path: "x", Action: "copy"})
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.Disabled)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
