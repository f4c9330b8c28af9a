package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/config"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/configstore"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Inspect the connector manifest.",
}

var connectorsCheckCmd = &cobra.Command{
	Use:   "check [manifest]",
	Short: "Validate the connector manifest and report missing credentials.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path = cfg.ConnectorsFile
		}
		manifest, err := configstore.LoadManifest(path)
		if err != nil {
			return err
		}
		reg := registry.NewRegistry()
		if err := registerProviders(reg, nil); err != nil {
			return err
		}
		problems := checkManifest(cmd.OutOrStdout(), reg, manifest)
		if problems > 0 {
			return &exitError{code: 1, err: fmt.Errorf("%d connector(s) need attention", problems)}
		}
		return nil
	},
}

func init() {
	connectorsCmd.AddCommand(connectorsCheckCmd)
}

// connectorCheck is the outcome of checking one manifest entry.
type connectorCheck struct {
	ID      string
	Kind    string
	Enabled bool
	Problem error
}

func (c connectorCheck) status() string {
	switch {
	case c.Problem != nil:
		return c.Problem.Error()
	case !c.Enabled:
		return "disabled"
	default:
		return "ok"
	}
}

// checkConnector reports an unknown kind or required credentials that are
// missing. Secret references count as present; they are resolved at startup.
func checkConnector(reg *registry.ConnectorRegistry, ic configstore.IntegrationConfig) error {
	def, ok := reg.Get(ic.Kind)
	if !ok {
		return fmt.Errorf("%w %q", registry.ErrUnknownKind, ic.Kind)
	}
	required := slices.Clone(def.Info().RequiredCredentials)
	for _, field := range ic.RequiredCredentials {
		if !slices.Contains(required, field) {
			required = append(required, field)
		}
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(ic.Credentials[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("missing credentials: " + strings.Join(missing, ", "))
	}
	return nil
}

func checkManifest(out io.Writer, reg *registry.ConnectorRegistry, manifest configstore.Manifest) int {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS")
	problems := 0
	for _, ic := range manifest.Connectors {
		check := connectorCheck{ID: ic.ID, Kind: ic.Kind, Enabled: ic.Enabled}
		if ic.Enabled {
			check.Problem = checkConnector(reg, ic)
		}
		if check.Problem != nil {
			problems++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", check.ID, check.Kind, check.status())
	}
	_ = tw.Flush()
	return problems
}
