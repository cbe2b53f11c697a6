package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"repograph/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repograph configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file and environment
overrides are merged. Secrets (tokens, API keys) are never printed.

Examples:
  repograph config show                 # JSON
  repograph config show --format toml
  repograph config show --format yaml`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, toml, yaml)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	return renderConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.DefaultConfig().DataDir, "config.json")
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

// renderConfig writes cfg in the requested format. TOML and YAML output go
// through the JSON form so that every format uses the same key names and
// omits the same secret fields.
func renderConfig(w io.Writer, cfg *config.Config, format string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}

	var tree map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return err
	}
	normalizeNumbers(tree)

	switch format {
	case "toml":
		return toml.NewEncoder(w).Encode(tree)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json, toml or yaml)", format)
	}
}

// normalizeNumbers replaces json.Number values with int64 or float64 so the
// encoders print them as numbers.
func normalizeNumbers(m map[string]interface{}) {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		normalizeNumbers(t)
		return t
	case []interface{}:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}
