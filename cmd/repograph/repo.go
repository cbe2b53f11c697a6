package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"repograph/internal/explorer"
	"repograph/internal/graph"
)

var (
	graphBranch string
	graphDepth  int
	graphRaw    bool
	graphStats  bool

	summaryBranch string
)

var graphCmd = &cobra.Command{
	Use:   "graph <owner/repo>",
	Short: "Print the file graph of a repository",
	Long: `Fetch a repository listing (through the cache) and print it as a node/link graph.

Examples:
  repograph graph golang/example
  repograph graph golang/example --branch master --depth 2
  repograph graph golang/example --raw      # Nested listing and README
  repograph graph golang/example --stats    # Node and link counts only`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

var summaryCmd = &cobra.Command{
	Use:   "summary <owner/repo> <path>",
	Short: "Summarize one file of a repository",
	Long: `Print the AI summary of a file, generating and caching it on a miss.

Examples:
  repograph summary golang/example hello/hello.go
  repograph summary golang/example README.md --branch master`,
	Args: cobra.ExactArgs(2),
	RunE: runSummary,
}

func init() {
	graphCmd.Flags().StringVar(&graphBranch, "branch", "", "Branch, tag or commit (default: repository default branch)")
	graphCmd.Flags().IntVar(&graphDepth, "depth", 0, "Directory depth to fetch (default: github.defaultDepth)")
	graphCmd.Flags().BoolVar(&graphRaw, "raw", false, "Print the nested listing instead of the graph")
	graphCmd.Flags().BoolVar(&graphStats, "stats", false, "Print counts only")
	rootCmd.AddCommand(graphCmd)

	summaryCmd.Flags().StringVar(&summaryBranch, "branch", "", "Branch, tag or commit")
	rootCmd.AddCommand(summaryCmd)
}

// parseRepoArg splits "owner/repo". A trailing ".git" and a github.com URL
// prefix are accepted.
func parseRepoArg(arg string) (owner, repo string, err error) {
	s := strings.TrimSpace(arg)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")

	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", arg)
	}
	return owner, repo, nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	owner, repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	req := explorer.RepoRequest{Owner: owner, Repo: repo, Branch: graphBranch, Depth: graphDepth}
	if graphRaw {
		data, err := a.explorer.LoadRepo(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), data)
	}

	g, err := a.explorer.LoadGraph(cmd.Context(), req)
	if err != nil {
		return err
	}
	if graphStats {
		return writeGraphStats(cmd.OutOrStdout(), g)
	}
	return writeJSON(cmd.OutOrStdout(), g)
}

func runSummary(cmd *cobra.Command, args []string) error {
	owner, repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, newLogger(cfg, os.Stderr), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.explorer.Summary(cmd.Context(), explorer.SummaryRequest{
		Owner:  owner,
		Repo:   repo,
		Path:   args[1],
		Branch: summaryBranch,
	})
	if err != nil {
		return err
	}
	if res.Cached {
		fmt.Fprintln(cmd.ErrOrStderr(), "(cached)")
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
	return nil
}

func writeGraphStats(w io.Writer, g *graph.GraphData) error {
	var files, dirs int
	for _, n := range g.Nodes[1:] {
		if n.Type == graph.TypeDir {
			dirs++
		} else {
			files++
		}
	}
	_, err := fmt.Fprintf(w, "nodes: %d (files: %d, dirs: %d)\nlinks: %d\n", len(g.Nodes), files, dirs, len(g.Links))
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
