// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Dwarfdump prints the DWARF debug information of an ELF object
// file: compilation units and their entry trees, line tables, and
// symbol tables.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "dwarfdump",
	Short: "Dump DWARF debug information from ELF object files",
	Long: `Dwarfdump builds the in-memory DWARF model of an ELF object file and
prints selected pieces of it: compilation units with their entry
trees, per-unit line-number tables, and address-sorted symbol tables.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(infoCmd, linesCmd, symbolsCmd)

	symbolsCmd.Flags().Bool("demangle", true, "demangle C++ symbol names")
	viper.BindPFlag("demangle", symbolsCmd.Flags().Lookup("demangle"))
}

// initConfig reads environment variables with the DWARFDUMP prefix.
func initConfig() {
	viper.SetEnvPrefix("dwarfdump")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
