package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/itiky/crdt-map/storage"
)

const (
	FlagFilePath    = "file-path"
	FlagStorageSize = "storage-size"
)

// GetGenerateCmd returns generate mock data command.
func GetGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate mock maps",
		Run: func(cmd *cobra.Command, args []string) {
			// Parse inputs
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatalf("config: %v", err)
			}
			filePath := cfg.GetString(FlagFilePath)
			storageSize := cfg.GetInt(FlagStorageSize)

			// Work
			if err := storage.GenAndSaveInitialStorage(filePath, storageSize); err != nil {
				log.Fatalf("gen failed: %v", err)
			}
		},
	}
	cmd.Flags().String(FlagFilePath, "./maps_v0.dat", "(optional) output file path")
	cmd.Flags().Int(FlagStorageSize, 100000, "(optional) number of maps")

	return cmd
}

func init() {
	rootCmd.AddCommand(GetGenerateCmd())
}
