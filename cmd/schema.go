package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/itiky/crdt-map/model"
	"github.com/itiky/crdt-map/search"
	"github.com/itiky/crdt-map/service/client"
)

// GetSchemaCmd returns search schema management commands.
func GetSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Search schema management",
	}
	cmd.PersistentFlags().String(FlagServerUrl, "127.0.0.1:2412", "(optional) server url")
	cmd.PersistentFlags().Uint(FlagClientId, 1, "unique clientID")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [name]",
			Short: "Print a search schema content",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				schema := newSchema(cmd, args[0])

				content, err := schema.Content()
				if err != nil {
					log.Fatalf("schema get: %v", err)
				}
				fmt.Println(content)
			},
		},
		&cobra.Command{
			Use:   "create [name] [file]",
			Short: "Create a search schema from the file",
			Args:  cobra.ExactArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				content, err := os.ReadFile(args[1])
				if err != nil {
					log.Fatalf("reading schema file: %v", err)
				}

				schema := newSchema(cmd, args[0])
				if err := schema.Create(string(content)); err != nil {
					log.Fatalf("schema create: %v", err)
				}
				log.Printf("Schema %q created", schema.Name())
			},
		},
	)

	return cmd
}

// newSchema connects to the server and builds a search.Schema handle.
func newSchema(cmd *cobra.Command, name string) *search.Schema {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	backend, err := client.NewBackend(model.ClientId(cfg.GetUint(FlagClientId)), cfg.GetString(FlagServerUrl))
	if err != nil {
		log.Fatalf("backend init: %v", err)
	}

	schema, err := search.NewSchema(backend, name)
	if err != nil {
		log.Fatalf("schema init: %v", err)
	}

	return schema
}

func init() {
	rootCmd.AddCommand(GetSchemaCmd())
}
