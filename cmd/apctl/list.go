package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vebgen/accesskit/internal/endpoint"
	"github.com/vebgen/accesskit/pkg/crud"
	"github.com/vebgen/accesskit/pkg/useapi"
)

var listArgs []string

var listCmd = &cobra.Command{
	Use:   "list <endpoint>",
	Short: "Fetch a list endpoint and print its items by key",
	Long: `List calls a list endpoint, loads the items into a CRUD table keyed by the
endpoint's key_field, and prints them ordered by key.

Example:
  apctl list users
  apctl list members --arg team=core`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringArrayVar(&listArgs, "arg", nil, "path argument as name=value (repeatable)")
}

type listCaller = useapi.Caller[endpoint.Session, json.RawMessage, []endpoint.Item]

// newListController wires a caller and a CRUD controller over the list
// endpoint name.
func newListController(name string, pairs []string, autoTrigger bool) (*crud.Controller[endpoint.Item, string], *listCaller, error) {
	ap, err := app.registry.List(name)
	if err != nil {
		return nil, nil, err
	}
	def, err := app.registry.Def(name)
	if err != nil {
		return nil, nil, err
	}
	perms, err := app.registry.Permissions(name)
	if err != nil {
		return nil, nil, err
	}
	m, err := parsePairs(pairs)
	if err != nil {
		return nil, nil, fmt.Errorf("--arg: %w", err)
	}
	req, err := app.registry.Request(name, nil, toPathArgs(m))
	if err != nil {
		return nil, nil, err
	}

	caller := useapi.NewCaller[endpoint.Session, json.RawMessage, []endpoint.Item](ap, useapi.Defaults[endpoint.Session, json.RawMessage]{
		Context:     app.session,
		PathArgs:    req.PathArgs,
		Timeout:     req.Timeout,
		AutoTrigger: autoTrigger,
	})
	ctrl := crud.NewController[endpoint.Item, string](caller, endpoint.KeyFunc(def.KeyField), perms, app.log.With("endpoint", name))
	return ctrl, caller, nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctrl, _, err := newListController(args[0], listArgs, false)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if !ctrl.Permissions().CanRead {
		return fmt.Errorf("endpoint %q does not allow reading", args[0])
	}
	if _, err := ctrl.ReloadList(cmd.Context()); err != nil {
		return err
	}

	st := ctrl.State()
	keys := make([]string, 0, len(st.Data))
	for k := range st.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := color.New(color.FgCyan, color.Bold)
	w := cmd.OutOrStdout()
	for _, k := range keys {
		item, err := json.Marshal(st.Data[k])
		if err != nil {
			return fmt.Errorf("marshal item %q: %w", k, err)
		}
		key.Fprint(w, k)
		fmt.Fprintf(w, "\t%s\n", item)
	}
	color.New(color.Faint).Fprintf(cmd.ErrOrStderr(), "%d items\n", len(keys))
	return nil
}
