package main

import (
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itiky/crdt-map/model"
	"github.com/itiky/crdt-map/service/client"
	"github.com/itiky/crdt-map/storage"
)

const (
	FlagServerUrl     = "server-url"
	FlagClientId      = "client-id"
	FlagOpsSendPeriod = "updates-period"
	FlagOpsSendMax    = "updates-max"
	FlagPollPeriod    = "poll-period"
	FlagBucket        = "bucket"
	FlagKey           = "key"
)

// GetClientCmd returns RPC-client start command.
func GetClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Start RPC client",
		Run: func(cmd *cobra.Command, args []string) {
			// Parse inputs
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatalf("config: %v", err)
			}
			serverUrl := cfg.GetString(FlagServerUrl)
			clientId := cfg.GetUint(FlagClientId)
			opsSendMax := cfg.GetInt(FlagOpsSendMax)
			opsSendDur := cfg.GetDuration(FlagOpsSendPeriod)
			pollDur := cfg.GetDuration(FlagPollPeriod)
			bucket := cfg.GetString(FlagBucket)
			key := cfg.GetString(FlagKey)

			if clientId == 0 {
				clientId = uint(rand.Uint32())
			}

			// Init service
			svc, err := client.NewClient(
				model.ClientId(clientId),
				opsSendDur,
				pollDur,
				opsSendMax,
				serverUrl,
				bucket,
				key,
			)
			if err != nil {
				log.Fatalf("service init: %v", err)
			}

			svc.Start()

			// Wait for signal
			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
			<-signalCh

			svc.Stop()
		},
	}
	cmd.Flags().Uint(FlagClientId, 1, "unique clientID")
	cmd.Flags().Int(FlagOpsSendMax, 5, "max number of map operations per period")
	cmd.Flags().String(FlagServerUrl, "127.0.0.1:2412", "(optional) server url")
	cmd.Flags().Duration(FlagOpsSendPeriod, 1*time.Second, "(optional) map operations send period")
	cmd.Flags().Duration(FlagPollPeriod, 2*time.Second, "(optional) map updates poll period")
	cmd.Flags().String(FlagBucket, storage.MockBucket, "(optional) map bucket")
	cmd.Flags().String(FlagKey, "shared", "(optional) map key")

	return cmd
}

func init() {
	rootCmd.AddCommand(GetClientCmd())
}
