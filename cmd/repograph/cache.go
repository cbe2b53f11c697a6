package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"repograph/internal/cachekey"
	"repograph/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the summary and graph cache",
}

var cacheKeyCmd = &cobra.Command{
	Use:   "key <kind> key=value...",
	Short: "Print the cache key for a set of parameters",
	Long: `Render the canonical cache key for kind (summary or graph) and parameters.

Examples:
  repograph cache key summary owner=golang repo=example path=hello/hello.go branch= version=1
  repograph cache key graph owner=golang repo=example branch=master depth=4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheKey,
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the raw stored entry for a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheGet,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove an entry from the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDelete,
}

func init() {
	cacheCmd.AddCommand(cacheKeyCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	rootCmd.AddCommand(cacheCmd)
}

// parseKind accepts the two cache kinds by name.
func parseKind(s string) (cachekey.Kind, error) {
	switch k := cachekey.Kind(strings.ToLower(s)); k {
	case cachekey.Summary, cachekey.Graph:
		return k, nil
	default:
		return "", fmt.Errorf("unknown cache kind %q (want %s or %s)", s, cachekey.Summary, cachekey.Graph)
	}
}

// parseParams turns key=value arguments into a parameter map. An empty
// value is kept; it renders as "key:".
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

func runCacheKey(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cachekey.Make(kind, params))
	return nil
}

// openStore opens the configured store for direct inspection.
func openStore(cmd *cobra.Command) (storage.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	store, closer, err := storage.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close cache store", "error", err)
		}
	}, nil
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	store, done, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer done()

	value, found, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no entry for key %q", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(value))
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	store, done, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := store.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
