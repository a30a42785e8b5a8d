package main

import (
	"fmt"
	"os"
	"strconv"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	configShowCmd.Flags().BoolVar(&configShowRaw, "raw", false, "Print the config file verbatim")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage filmroom configuration",
	Long:  "View or modify the filmroom CLI configuration stored in ~/.filmroom/config.toml.",
}

var configShowRaw bool

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: "Print the configuration with defaults filled in and the realtime URL resolved.\n" +
		"Use --raw to print the file exactly as stored.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			fmt.Println("No configuration file found. Run 'filmroom init <base-url>' to create one.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot read config file: %w", err)
		}
		if configShowRaw {
			fmt.Print(string(data))
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		eff := effectiveConfig(cfg)
		rows := [][]string{
			{"default.base_url", valueOrDefault(eff.Default.BaseURL, "(not set)")},
			{"default.timeout", eff.Default.Timeout},
			{"realtime.url", valueOrDefault(eff.Realtime.URL, "(derived once base_url is set)")},
			{"realtime.reconnect_interval", eff.Realtime.ReconnectInterval},
			{"realtime.max_reconnect_attempts", strconv.Itoa(eff.Realtime.MaxReconnectAttempts)},
			{"log.level", eff.Log.Level},
			{"log.format", eff.Log.Format},
		}
		fmt.Println(renderTable([]string{"Key", "Value"}, rows, nil))
		fmt.Printf("Loaded from %s\n", path)
		return nil
	},
}

// effectiveConfig fills unset fields with the values the CLI would use.
func effectiveConfig(cfg *Config) Config {
	eff := *cfg
	if eff.Default.Timeout == "" {
		eff.Default.Timeout = filmroom.DefaultTimeout.String()
	}
	if eff.Realtime.URL == "" && eff.Default.BaseURL != "" {
		eff.Realtime.URL, _ = filmroom.RealtimeURL(eff.Default.BaseURL)
	}
	if eff.Realtime.ReconnectInterval == "" {
		eff.Realtime.ReconnectInterval = filmroom.DefaultReconnectInterval.String()
	}
	eff.Realtime.MaxReconnectAttempts = maxAttemptsOrDefault(eff.Realtime.MaxReconnectAttempts)
	eff.Log.Level = valueOrDefault(eff.Log.Level, "info")
	eff.Log.Format = valueOrDefault(eff.Log.Format, "text")
	return eff
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value using dot notation.\nExample: filmroom config set realtime.reconnect_interval 5s",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}

		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}
