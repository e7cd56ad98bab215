package main

import (
	"log"

	"github.com/spf13/cobra"
)

const (
	FlagConfig = "config"
)

// rootCmd is a base command.
var rootCmd = &cobra.Command{
	Use:   "crdt-map",
	Short: "CRDT map client/server",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("rootCmd.Execute: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().String(FlagConfig, "", "(optional) YAML config file path (flags and CRDTMAP_* env override it)")
}
