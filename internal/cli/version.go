package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the studytimer release.
const Version = "0.1.0"

const modulePath = "studytimer"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the studytimer version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "studytimer v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
