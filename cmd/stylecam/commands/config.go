package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/stylecam/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage StyleCam configuration",
	Long:  `View and manage StyleCam configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current StyleCam configuration.`,
	Example: `  # Show configuration as YAML (default)
  stylecam config show

  # Show configuration as JSON
  stylecam config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a specific configuration value.`,
	Example: `  # Set server port
  stylecam config set server_port 9090

  # Select the v4l2 loopback output
  stylecam config set output.kind v4l2
  stylecam config set output.device /dev/video10

  # Set the default style
  stylecam config set style cartoon`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get server port
  stylecam config get server_port

  # Get the output kind
  stylecam config get output.kind`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch key {
	case "server_port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port number: %s", value)
		}
		cfg.ServerPort = port
	case "log_level":
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		cfg.LogLevel = value
	case "input.device":
		cfg.Input.Device = value
	case "input.width", "input.height", "input.fps":
		num, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		switch key {
		case "input.width":
			cfg.Input.Width = num
		case "input.height":
			cfg.Input.Height = num
		case "input.fps":
			cfg.Input.FPS = num
		}
	case "output.kind":
		if value != "mjpeg" && value != "v4l2" {
			return fmt.Errorf("invalid output kind: %s (use: mjpeg or v4l2)", value)
		}
		cfg.Output.Kind = value
	case "output.device":
		cfg.Output.Device = value
	case "pipeline.max_fps", "pipeline.buffer_size":
		num, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		if key == "pipeline.max_fps" {
			cfg.Pipeline.MaxFPS = num
		} else {
			cfg.Pipeline.BufferSize = num
		}
	case "style":
		cfg.Style.Style = value
		cfg.Style.Variant = ""
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := configMgr.Update(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch key {
	case "server_port":
		fmt.Println(cfg.ServerPort)
	case "log_level":
		fmt.Println(cfg.LogLevel)
	case "input.device":
		fmt.Println(cfg.Input.Device)
	case "input.width":
		fmt.Println(cfg.Input.Width)
	case "input.height":
		fmt.Println(cfg.Input.Height)
	case "input.fps":
		fmt.Println(cfg.Input.FPS)
	case "output.kind":
		fmt.Println(cfg.Output.Kind)
	case "output.device":
		fmt.Println(cfg.Output.Device)
	case "pipeline.max_fps":
		fmt.Println(cfg.Pipeline.MaxFPS)
	case "pipeline.buffer_size":
		fmt.Println(cfg.Pipeline.BufferSize)
	case "style":
		fmt.Println(cfg.Style.Style)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}
