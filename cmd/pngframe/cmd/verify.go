package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/pngframe/pkg/pngfile"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check the signature and every chunk checksum of PNG files",
		Long: `Check that each file starts with the PNG signature and that every chunk
frame is complete and matches its CRC. The command fails if any file does.

Example:
  pngframe verify a.png b.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := container.Logger()
			failed := 0
			for _, path := range args {
				err := verifyFile(container.ReaderConfig(path))
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "INVALID %s (%s): %v\n", path, pngfile.Kind(err), err)
					logger.Debug().Err(err).Str("file", path).Msg("verification failed")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK      %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed verification", failed, len(args))
			}
			return nil
		},
	}
}

func verifyFile(cfg pngfile.ReaderConfig) error {
	r, err := pngfile.NewReader(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = pngfile.Summarize(r)
	return err
}
