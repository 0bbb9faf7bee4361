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

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// newVersionCmd reports the binary's version from the embedded build info.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version := "dev"
			revision := ""
			modified := false
			if info, ok := debug.ReadBuildInfo(); ok {
				if info.Main.Version != "" {
					version = info.Main.Version
				}
				for _, setting := range info.Settings {
					switch setting.Key {
					case "vcs.revision":
						revision = setting.Value
					case "vcs.modified":
						modified = setting.Value == "true"
					}
				}
			}
			if modified {
				revision += " (modified)"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "🚀 flatr version info:")
			fmt.Fprintf(out, "Version:   %s\n", version)
			if revision != "" {
				fmt.Fprintf(out, "Revision:  %s\n", revision)
			}
			fmt.Fprintf(out, "Go:        %s\n", runtime.Version())
			fmt.Fprintf(out, "Platform:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
