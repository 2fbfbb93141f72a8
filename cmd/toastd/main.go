package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Client flags shared by the subcommands that talk to a running daemon.
type clientFlags struct {
	addr  string
	token string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "toastd",
		Short: "Toast notification store daemon",
		Long: `toastd keeps a small, bounded list of toast notifications.

Run "toastd serve" to start the daemon. The other commands talk to a
running daemon over its HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cf := &clientFlags{}
	rootCmd.PersistentFlags().StringVar(&cf.addr, "addr", envOr("TOASTD_ADDR", ""), "daemon address (host:port or URL)")
	rootCmd.PersistentFlags().StringVar(&cf.token, "token", os.Getenv("TOASTD_TOKEN"), "API token")

	rootCmd.AddCommand(
		serveCmd(),
		sendCmd(cf),
		listCmd(cf),
		dismissCmd(cf),
		removeCmd(cf),
		historyCmd(cf),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
