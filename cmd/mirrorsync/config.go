package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mirrorsync/mirrorsync/internal/config"
)

func newConfigCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file format",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			bs, err := config.ReflectSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, string(bs))
			return err
		},
	})

	return cmd
}
