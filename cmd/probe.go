package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/nvr"
)

// CreateProbeCmd creates the probe command: ffprobe one channel's RTSP
// stream and print what the camera actually sends.
func CreateProbeCmd() *cobra.Command {
	var flags nvrFlags
	var streamType string
	var ffprobePath string
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "probe [channel]",
		Short: "Probe a channel's RTSP stream",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			channelID, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid channel %q\n", args[0])
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			binaries, err := ffmpeg.ResolveBinaries(ctx, "", ffprobePath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			discovery := nvr.NewDiscovery(flags.client())
			url := discovery.RTSPURL(channelID, nvr.StreamType(streamType))

			info, err := ffmpeg.Probe(ctx, binaries.FFprobe, url, time.Duration(timeoutSec)*time.Second)
			if err != nil {
				fmt.Fprintf(os.Stderr, "probe: %v\n", err)
				os.Exit(1)
			}

			out, _ := json.MarshalIndent(info, "", "  ")
			fmt.Println(string(out))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&streamType, "stream-type", string(nvr.Mainstream), "Stream to probe (mainstream, substream, thirdstream)")
	cmd.Flags().StringVar(&ffprobePath, "ffprobe", "", "Path to ffprobe (default: search PATH)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 10, "Probe timeout in seconds")
	return cmd
}
