// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/AleutianAI/beacon/cmd/beacon/config"
	"github.com/AleutianAI/beacon/pkg/ux"
	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags. "dev" keeps the stack
// directory resolution pointed at the working tree.
var Version = "dev"

func main() {
	// Locked secret pages must be wiped even when a command exits early.
	defer PurgeSecretMemory()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		PurgeSecretMemory()
		os.Exit(CLIExitError)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if personalityLevel != "" {
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
		} else {
			ux.InitPersonality()
		}

		if err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(CLIExitError)
		}
	}
}
