package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vebgen/accesskit/pkg/accesspoint"
)

var (
	callData    string
	callArgs    []string
	callHeaders []string
)

var callCmd = &cobra.Command{
	Use:   "call <endpoint>",
	Short: "Call an endpoint once and print its JSON result",
	Long: `Call sends one request to the named endpoint of the config file and prints
the JSON response body.

Example:
  apctl call user --arg id=42
  apctl call rename --arg id=42 --data '{"name":"Ann"}'
  apctl call import --data @payload.json --header X-Tenant=acme`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callData, "data", "", "JSON payload, or @file to read it from a file")
	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "path argument as name=value (repeatable)")
	callCmd.Flags().StringArrayVar(&callHeaders, "header", nil, "extra header as Name=value (repeatable)")
}

func runCall(cmd *cobra.Command, args []string) error {
	name := args[0]

	ap, err := app.registry.Raw(name)
	if err != nil {
		return err
	}
	payload, err := readPayload(callData)
	if err != nil {
		return err
	}
	pathArgs, err := parsePairs(callArgs)
	if err != nil {
		return fmt.Errorf("--arg: %w", err)
	}
	headers, err := parsePairs(callHeaders)
	if err != nil {
		return fmt.Errorf("--header: %w", err)
	}

	req, err := app.registry.Request(name, payload, toPathArgs(pathArgs))
	if err != nil {
		return err
	}
	req.Headers = headers

	start := time.Now()
	out, err := ap.Call(cmd.Context(), app.session, req)
	if err != nil {
		return err
	}

	color.New(color.FgWhite, color.BgGreen).Fprint(cmd.ErrOrStderr(), " OK ")
	color.New(color.Faint).Fprintf(cmd.ErrOrStderr(), " %s %s\n", name, time.Since(start).Round(time.Millisecond))
	return printJSON(cmd, out)
}

// readPayload returns nil for an empty flag value.
func readPayload(data string) (*json.RawMessage, error) {
	if data == "" {
		return nil, nil
	}
	b := []byte(data)
	if path, ok := strings.CutPrefix(data, "@"); ok {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	if !json.Valid(b) {
		return nil, errors.New("--data: payload is not valid JSON")
	}
	raw := json.RawMessage(b)
	return &raw, nil
}

// parsePairs splits name=value flags. A value may itself contain '='.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not name=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func toPathArgs(m map[string]string) accesspoint.PathArgs {
	if m == nil {
		return nil
	}
	args := make(accesspoint.PathArgs, len(m))
	for k, v := range m {
		args[k] = v
	}
	return args
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
