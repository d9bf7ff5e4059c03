package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/appforge-cli/internal/config"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set appforge configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := saveConfigValue(cfg, cfgFile, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

// saveConfigValue sets key in the config file only. The effective config
// (env included) validates the result but is never written.
func saveConfigValue(effective *cfgpkg.Global, path, key, val string) error {
	onDisk, err := cfgpkg.LoadFile(path)
	if err != nil {
		return err
	}
	if err := setConfigValue(onDisk, key, val); err != nil {
		return err
	}
	if effective == nil {
		if effective, err = cfgpkg.Load(path); err != nil {
			return err
		}
	}
	check := *effective
	if err := setConfigValue(&check, key, val); err != nil {
		return err
	}
	if err := check.Validate(); err != nil {
		return err
	}
	return cfgpkg.Save(onDisk, path)
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := configSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSchemaCmd)
}

func configSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	schema := r.Reflect(&cfgpkg.Global{})
	schema.Title = "appforge configuration"
	schema.Description = "Schema for ~/.appforge/config.yaml."
	// Every key has a default.
	schema.Required = nil
	return json.MarshalIndent(schema, "", "  ")
}

func printConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
	fmt.Fprintf(w, "base_url: %s\n", c.BaseURL)
	fmt.Fprintf(w, "model: %s\n", c.Model)
	if c.MaxTokens > 0 {
		fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	}
	fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
	fmt.Fprintf(w, "output_dir: %s\n", c.OutputDir)
	fmt.Fprintf(w, "on_error: %s\n", c.OnError)
	fmt.Fprintf(w, "write_manifest: %t\n", c.WriteManifest)
	fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "base_url":
		c.BaseURL = strings.TrimRight(val, "/")
	case "model":
		c.Model = val
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_tokens: %v", val)
		}
		c.MaxTokens = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	case "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "http_timeout_sec":
			c.HTTPTimeoutSec = i
		case "retry_max_attempts":
			c.RetryMaxAttempts = i
		case "retry_base_delay_ms":
			c.RetryBaseDelayMs = i
		default:
			c.RetryMaxDelayMs = i
		}
	case "output_dir":
		c.OutputDir = val
	case "on_error":
		c.OnError = strings.ToLower(strings.TrimSpace(val))
	case "write_manifest":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for write_manifest: %w", err)
		}
		c.WriteManifest = b
	case "log_level":
		c.LogLevel = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
