package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vebgen/accesskit/pkg/appurls"
)

var urlsJSON bool

var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "Print the resolved application URLs",
	Long: `Print the webapp, API and auth domains and paths after applying the config
file, the REACT_APP_* and NX_* environment variables, and the fallbacks.

Example:
  REACT_APP_API_DOMAIN=https://api.example.com apctl urls`,
	Args: cobra.NoArgs,
	RunE: runURLs,
}

func init() {
	urlsCmd.Flags().BoolVar(&urlsJSON, "json", false, "print as JSON")
}

func runURLs(cmd *cobra.Command, args []string) error {
	u, ok := appurls.FromContext(cmd.Context())
	if !ok {
		u = app.urls
	}

	if urlsJSON {
		out, err := json.MarshalIndent(u, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal urls: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	key := color.New(color.FgCyan)
	w := cmd.OutOrStdout()
	for _, row := range []struct{ name, root string }{
		{"webapp", u.WebappRoot()},
		{"api", u.APIRoot()},
		{"auth", u.AuthRoot()},
	} {
		key.Fprintf(w, "%-7s", row.name)
		fmt.Fprintln(w, row.root)
	}
	return nil
}
