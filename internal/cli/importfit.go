package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"abcy/internal/fitfile"
)

func newImportFitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-fit <file>...",
		Short: "Import activities from FIT files",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				decoded, err := fitfile.Decode(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("decoding %s: %w", path, err)
				}

				header, err := a.svc.Save(cmd.Context(), decoded.Meta, decoded.Streams)
				if err != nil {
					return fmt.Errorf("saving %s: %w", path, err)
				}
				fmt.Fprintf(out, "imported %d  %s  %s  %s\n",
					header.ID, header.StartDate, header.Name, formatKm(header.Distance))
			}
			return nil
		}),
	}
}
