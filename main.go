package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/hikbridge/cmd"
	"github.com/smazurov/hikbridge/internal/api"
	"github.com/smazurov/hikbridge/internal/config"
	"github.com/smazurov/hikbridge/internal/events"
	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/snapshot"
	"github.com/smazurov/hikbridge/internal/streaming"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// NVR connection
	NvrHost     string `help:"NVR host" toml:"nvr.host" env:"NVR_HOST"`
	NvrPort     int    `help:"NVR HTTP port" default:"80" toml:"nvr.port" env:"NVR_PORT"`
	NvrUseTls   bool   `help:"Connect to the NVR over HTTPS" default:"false" toml:"nvr.use_tls" env:"NVR_USE_TLS"`
	NvrUsername string `help:"NVR username" default:"admin" toml:"nvr.username" env:"NVR_USERNAME"`
	NvrPassword string `help:"NVR password" toml:"nvr.password" env:"NVR_PASSWORD"`

	// Cameras
	CamerasConfigFile string `help:"Camera definitions file" default:"cameras.toml" toml:"cameras.config_file" env:"CAMERAS_CONFIG_FILE"`

	// Media tools
	FfmpegPath  string `help:"Path to ffmpeg (default: search PATH)" toml:"media.ffmpeg_path" env:"FFMPEG_PATH"`
	FfprobePath string `help:"Path to ffprobe (default: search PATH)" toml:"media.ffprobe_path" env:"FFPROBE_PATH"`

	// Events
	EventDebug bool `help:"Log every motion event decision" default:"false" toml:"events.debug" env:"EVENT_DEBUG"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingIsapi     string `help:"ISAPI client logging level" default:"info" toml:"logging.isapi" env:"LOGGING_ISAPI"`
	LoggingMonitor   string `help:"Event monitor logging level" default:"info" toml:"logging.monitor" env:"LOGGING_MONITOR"`
	LoggingStreaming string `help:"Session manager logging level" default:"info" toml:"logging.streaming" env:"LOGGING_STREAMING"`
	LoggingFfmpeg    string `help:"Transcoder output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingSnapshot  string `help:"Snapshot fetcher logging level" default:"info" toml:"logging.snapshot" env:"LOGGING_SNAPSHOT"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// The [logging] table may set levels for modules without a flag
		// (http, config, main); the flag-backed modules override it.
		logCfg := config.LoadLoggingConfig(opts.Config)
		logCfg.Level = opts.LoggingLevel
		logCfg.Format = opts.LoggingFormat
		logCfg.Modules["isapi"] = opts.LoggingIsapi
		logCfg.Modules["monitor"] = opts.LoggingMonitor
		logCfg.Modules["streaming"] = opts.LoggingStreaming
		logCfg.Modules["ffmpeg"] = opts.LoggingFfmpeg
		logCfg.Modules["snapshot"] = opts.LoggingSnapshot
		logCfg.Modules["api"] = opts.LoggingAPI
		logging.Initialize(logCfg)
		logger := logging.GetLogger("main")

		if opts.NvrHost == "" {
			logger.Error("NVR host not configured; set nvr.host or --nvr-host")
			os.Exit(1)
		}

		resolveCtx, cancelResolve := context.WithTimeout(context.Background(), 10*time.Second)
		binaries, err := ffmpeg.ResolveBinaries(resolveCtx, opts.FfmpegPath, opts.FfprobePath)
		cancelResolve()
		if err != nil {
			logger.Error("Media tools unavailable", "error", err)
			os.Exit(1)
		}
		logger.Info("Media tools resolved", "ffmpeg", binaries.FFmpeg, "ffprobe", binaries.FFprobe)

		client := isapi.NewClient(isapi.Credentials{
			Host:     opts.NvrHost,
			Port:     opts.NvrPort,
			UseTLS:   opts.NvrUseTls,
			Username: opts.NvrUsername,
			Password: opts.NvrPassword,
		}, logging.GetLogger("isapi"))
		discovery := nvr.NewDiscovery(client)
		bus := events.New()
		monitor := nvr.NewMonitor(client, bus, opts.EventDebug)

		// Camera definitions hot-swap under the watcher; sessions resolve
		// settings at start time so a reload applies to the next viewer.
		var cameras atomic.Pointer[config.CamerasConfig]
		initial, loadErr := config.LoadCameras(opts.CamerasConfigFile)
		if loadErr != nil {
			logger.Warn("Failed to load cameras config", "error", loadErr)
		}
		cameras.Store(&initial)

		settings := func(channelID int) streaming.CameraSettings {
			cam, _ := cameras.Load().Camera(channelID)
			return cam.Settings()
		}

		sessions := streaming.NewManager(binaries.FFmpeg, discovery, settings, bus)
		snapshots := snapshot.NewFetcher(binaries.FFmpeg, func(channelID int) []string {
			cam, _ := cameras.Load().Camera(channelID)
			return discovery.FFmpegStillSourceArgs(channelID, cam.Settings().StreamType)
		}, bus)

		watcher := config.NewWatcher(opts.CamerasConfigFile, 0, config.LoadCameras, logging.GetLogger("config"))
		watcher.OnReload(func(cfg config.CamerasConfig) {
			cameras.Store(&cfg)
			bus.Publish(events.ChannelsReloadedEvent{
				Count:     len(cfg.Cameras),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Discovery:         discovery,
			Sessions:          sessions,
			Snapshots:         snapshots,
			PrometheusHandler: promhttp.Handler(),
		})

		monitorCtx, cancelMonitor := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Cameras config not watched", "error", watchErr)
			}

			monitor.Start(monitorCtx)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			monitor.Stop()
			cancelMonitor()
			sessions.StopAll()

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateDiscoverCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())

	cli.Run()
}
