// Package cmd holds the cobra subcommands attached to the CLI root.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/nvr"
)

// nvrFlags are the connection flags shared by the offline subcommands.
type nvrFlags struct {
	host     string
	port     int
	useTLS   bool
	username string
	password string
}

func (f *nvrFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "NVR host")
	cmd.Flags().IntVar(&f.port, "port", 80, "NVR HTTP port")
	cmd.Flags().BoolVar(&f.useTLS, "use-tls", false, "Connect to the NVR over HTTPS")
	cmd.Flags().StringVar(&f.username, "username", "admin", "NVR username")
	cmd.Flags().StringVar(&f.password, "password", "", "NVR password")
	cmd.MarkFlagRequired("host")
}

func (f *nvrFlags) client() *isapi.Client {
	return isapi.NewClient(isapi.Credentials{
		Host:     f.host,
		Port:     f.port,
		UseTLS:   f.useTLS,
		Username: f.username,
		Password: f.password,
	}, logging.GetLogger("isapi"))
}

// CreateDiscoverCmd creates the discover command: connect to an NVR, print
// its identity and input channels, exit.
func CreateDiscoverCmd() *cobra.Command {
	var flags nvrFlags

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Query an NVR for device info and channels",
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			discovery := nvr.NewDiscovery(flags.client())

			info, err := discovery.DeviceInfo(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "device info: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Device:   %s\n", info.Name)
			fmt.Printf("Model:    %s\n", info.Model)
			fmt.Printf("Serial:   %s\n", info.SerialNumber)
			fmt.Printf("Firmware: %s\n", info.FirmwareVersion)

			channels, err := discovery.Channels(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "channels: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("\nChannels (%d):\n", len(channels))
			for _, ch := range channels {
				fmt.Printf("  %3d  %s\n", ch.ID, ch.Name)
			}
		},
	}

	flags.register(cmd)
	return cmd
}
