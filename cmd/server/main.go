// Command server runs gitfolio: the HTTP API by default, plus migrate and
// admin subcommands for operators.
//
//	server                      # same as "server serve"
//	server serve --config gitfolio.yaml
//	server migrate
//	server admin users
//	server admin portfolios --email mona@example.com
//	server admin hash-secret < secret.txt
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var root = &cobra.Command{
	Use:           "gitfolio",
	Short:         "Portfolio service for GitHub usernames",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $GITFOLIO_CONFIG)")

	root.AddCommand(serveCmd)
	root.AddCommand(migrateCmd)
	root.AddCommand(adminCmd)
}

func main() {
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
