package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/stylecam/internal/api"
	"github.com/bryanchriswhite/stylecam/internal/config"
	"github.com/bryanchriswhite/stylecam/internal/logger"
	"github.com/bryanchriswhite/stylecam/internal/pipeline"
	"github.com/bryanchriswhite/stylecam/internal/sink"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the StyleCam pipeline and HTTP server",
	Long: `Start the StyleCam capture pipeline and HTTP server.

The pipeline opens the configured capture device (falling back to a
synthetic feed when none is available), applies the configured style
and publishes frames to the output sink. The server provides a REST
API for switching styles at runtime and an MJPEG preview stream.`,
	Example: `  # Start with defaults (camera 0, MJPEG output on port 8080)
  stylecam serve

  # Start on a custom port
  stylecam serve --port 9090

  # Start with a specific device and style
  stylecam serve --device 2 --style cartoon

  # Start with debug logging
  stylecam serve --config /path/to/config.yaml --log-level debug`,
	RunE: runServe,
}

var (
	serveDevice string
	serveStyle  string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveDevice, "device", "d", "", "capture device index or path (overrides config)")
	serveCmd.Flags().StringVarP(&serveStyle, "style", "s", "", "initial style name (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("🎨 StyleCam - Real-time Artistic Styles for Your Webcam")
	fmt.Println("=======================================================")

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if logLevel := viper.GetString("log_level"); logLevel != "" {
			configMgr.SetLogLevel(logLevel)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")
	log.Info().Str("path", configMgr.GetConfigPath()).Msg("Configuration loaded")

	device := cfg.Input.Device
	if serveDevice != "" {
		device = serveDevice
	}
	initialStyle := cfg.Style
	if serveStyle != "" {
		initialStyle = style.Config{Style: serveStyle, Params: style.Params{}}
	}

	registry := style.DefaultRegistry()

	// The MJPEG sink doubles as the HTTP preview stream, so it is built
	// here and shared with the API server.
	var mjpegSink *sink.MJPEG
	opts := pipeline.Options{
		Registry: registry,
		Input:    cfg.Input,
		Output:   cfg.Output,
		Pipeline: cfg.Pipeline,
	}
	if cfg.Output.Kind == sink.KindMJPEG || cfg.Output.Kind == "" {
		mjpegSink = sink.NewMJPEG()
		opts.Sink = mjpegSink
	}

	supervisor := pipeline.NewSupervisor(opts)
	if err := supervisor.Start(device, initialStyle); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer supervisor.Stop()

	server := api.NewServer(supervisor, configMgr, mjpegSink)

	// Start server in a goroutine
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println()
	log.Info().Msg("✅ StyleCam is running!")
	log.Info().Msgf("   - Preview: http://localhost:%d/stream", cfg.ServerPort)
	log.Info().Msgf("   - API: http://localhost:%d/api", cfg.ServerPort)
	log.Info().Msg("   - Press Ctrl+C to stop")
	fmt.Println()

	<-sigChan

	fmt.Println()
	log.Info().Msg("Shutting down gracefully...")
	return nil
}
