package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/spf13/cobra"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the customer matrix as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		m, err := repository.NewMatrixRepository(st.backend).Build(cmd.Context())
		if err != nil {
			return fmt.Errorf("build matrix: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}
