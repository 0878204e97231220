package main

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/mirrorsync/mirrorsync/internal/config"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = ""

func newRootCommand(env config.LookupFunc, stdout, stderr io.Writer) *cobra.Command {
	var params pruneParams

	root := &cobra.Command{
		Use:   "mirrorsync",
		Short: "Delete mirror branches and tags that no longer exist on the source",
		Long: `mirrorsync compares the branches and tags of a GitLab project with those of
its GitHub mirror and deletes from the mirror every reference that is gone
from GitLab. Protected mirror branches are never touched.

Without a subcommand, mirrorsync runs "prune".`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), params, cmd.Flags(), env, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	addPruneFlags(root.Flags(), &params)

	root.AddCommand(
		newPruneCommand(env, stdout, stderr),
		newConfigCommand(stdout),
		newVersionCommand(stdout),
	)

	return root
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of mirrorsync",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(stdout, "mirrorsync", buildVersion())
		},
	}
}

func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
