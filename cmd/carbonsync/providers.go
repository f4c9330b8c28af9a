package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported provider kinds and the credentials each one needs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.NewRegistry()
		if err := registerProviders(reg, nil); err != nil {
			return err
		}
		return writeProviders(cmd.OutOrStdout(), reg)
	},
}

func writeProviders(out io.Writer, reg *registry.ConnectorRegistry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tFAMILY\tAUTH\tCREDENTIALS")
	for _, def := range reg.All() {
		info := def.Info()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			info.Kind, info.DisplayName, info.Family, info.Auth, strings.Join(info.RequiredCredentials, ","))
	}
	return tw.Flush()
}
