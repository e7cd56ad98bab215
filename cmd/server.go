package main

import (
	"log"
	"net"
	"net/rpc"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itiky/crdt-map/service/server"
	"github.com/itiky/crdt-map/storage"
)

const (
	FlagPort         = "port"
	FlagBatchChSize  = "batch-ch-size"
	FlagHandlePeriod = "handle-period"
	FlagSchemaDB     = "schema-db"
)

// GetServerCmd returns RPC-server start command.
func GetServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start RPC server",
		Run: func(cmd *cobra.Command, args []string) {
			// Parse inputs
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatalf("config: %v", err)
			}
			port := cfg.GetInt(FlagPort)
			chSize := cfg.GetInt(FlagBatchChSize)
			handleDur := cfg.GetDuration(FlagHandlePeriod)
			filePath := cfg.GetString(FlagFilePath)
			schemaDBPath := cfg.GetString(FlagSchemaDB)

			// Init service
			schemas, err := storage.NewSchemaRegistry(schemaDBPath)
			if err != nil {
				log.Fatalf("schema registry init: %v", err)
			}
			defer schemas.Close()

			svc, err := server.NewMapService(chSize, handleDur, filePath, schemas)
			if err != nil {
				log.Fatalf("service init: %v", err)
			}

			// Start server
			if err := rpc.Register(svc); err != nil {
				log.Fatalf("RPC server: register: %v", err)
			}
			svc.Start()

			listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
			if err != nil {
				log.Fatalf("RPC server: listen: %v", err)
			}
			defer listener.Close()

			go rpc.Accept(listener)

			log.Printf("RPC server started: :%d", port)

			// Wait for signal
			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
			<-signalCh

			svc.Stop()
		},
	}
	cmd.Flags().Int(FlagPort, 2412, "(optional) server port")
	cmd.Flags().Int(FlagBatchChSize, 50, "(optional) input operation channel limit")
	cmd.Flags().Duration(FlagHandlePeriod, 500*time.Millisecond, "(optional) input operations handling period")
	cmd.Flags().String(FlagFilePath, "", "(optional) path to generated storage file")
	cmd.Flags().String(FlagSchemaDB, "./schemas.db", "(optional) search schema SQLite database path")

	return cmd
}

func init() {
	rootCmd.AddCommand(GetServerCmd())
}
