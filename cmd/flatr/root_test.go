package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/flatr/pkg/rename"
)

func TestDefaultWorkerCount(t *testing.T) {
	n := defaultWorkerCount()
	assert.GreaterOrEqual(t, n, 1)
}

func TestParseMapPairs(t *testing.T) {
	tests := []struct {
		name      string
		pairs     []string
		want      rename.Map
		wantError bool
	}{
		{
			name:  "valid_pairs",
			pairs: []string{"old-a=new-a", "old-b=new-b"},
			want:  rename.Map{"old-a": "new-a", "old-b": "new-b"},
		},
		{
			name:  "value_containing_equals",
			pairs: []string{"a=b=c"},
			want:  rename.Map{"a": "b=c"},
		},
		{
			name:      "missing_separator",
			pairs:     []string{"justonename"},
			wantError: true,
		},
		{
			name:      "empty_old_name",
			pairs:     []string{"=new"},
			wantError: true,
		},
		{
			name:      "empty_new_name",
			pairs:     []string{"old="},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMapPairs(tt.pairs)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCmd_RequiresTwoArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"only-source"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	var out strings.Builder
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "flatr version info")
}
