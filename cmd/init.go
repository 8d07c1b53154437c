package cmd

import (
	"fmt"

	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the storage files (existing files are left untouched)",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		for _, f := range tabular.Files() {
			fmt.Fprintln(cmd.OutOrStdout(), st.backend.Path(f))
		}
		return nil
	},
}
