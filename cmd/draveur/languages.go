package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/draveur/internal/lang"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported languages and their built-in mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tEXTENSION\tMAPPINGS")
			for _, name := range lang.Names() {
				l, err := lang.Lookup(name)
				if err != nil {
					return err
				}
				var names []string
				for _, m := range l.Mappings() {
					names = append(names, m.Name)
				}
				fmt.Fprintf(tw, "%s\t.%s\t%s\n", l.Name(), l.Extension(), strings.Join(names, ", "))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
