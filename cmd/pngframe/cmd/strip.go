package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/pngfile"
)

func newStripCmd() *cobra.Command {
	var keepTypes []string

	cmd := &cobra.Command{
		Use:   "strip <in> <out>",
		Short: "Copy a PNG file without its ancillary chunks",
		Long: `Copy a PNG file chunk by chunk, dropping every ancillary chunk whose
type is not listed with --keep-type. Critical chunks are always kept.

Examples:
  pngframe strip photo.png clean.png
  pngframe strip photo.png clean.png --keep-type pHYs --keep-type iCCP`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := make(map[codec.ChunkType]bool, len(keepTypes))
			for _, name := range keepTypes {
				typ, err := codec.ParseChunkType(name)
				if err != nil {
					return err
				}
				keep[typ] = true
			}

			stats, err := stripFile(args[0], args[1], container.ReaderConfig(args[0]), keep)
			if err != nil {
				return err
			}

			logger := container.Logger()
			logger.Info().
				Str("in", args[0]).
				Str("out", args[1]).
				Int("kept", stats.Kept).
				Int("dropped", stats.Dropped).
				Msg("stripped png")
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d chunks, dropped %d\n", stats.Kept, stats.Dropped)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&keepTypes, "keep-type", nil, "Ancillary chunk type to keep (repeatable)")
	return cmd
}

func stripFile(in, out string, cfg pngfile.ReaderConfig, keep map[codec.ChunkType]bool) (pngfile.CopyStats, error) {
	var stats pngfile.CopyStats

	r, err := pngfile.NewReader(cfg)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", in, err)
	}
	defer r.Close()

	w, err := pngfile.NewWriter(pngfile.WriterConfig{
		FilePath:      out,
		FsyncInterval: time.Second,
		Strict:        cfg.Strict,
	})
	if err != nil {
		return stats, fmt.Errorf("%s: %w", out, err)
	}
	discard := func() {
		_ = w.Close()
		_ = os.Remove(out)
	}

	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) && !errors.Is(err, pngfile.ErrMissingIEND) {
			break
		}
		if err != nil {
			discard()
			return stats, fmt.Errorf("%s: %w", in, err)
		}

		if !e.Chunk.Type.IsCritical() && !keep[e.Chunk.Type] {
			stats.Dropped++
			continue
		}
		if _, err := w.WriteEntry(e.Chunk); err != nil {
			discard()
			return stats, fmt.Errorf("%s: %w", out, err)
		}
		stats.Kept++
	}

	if err := w.Close(); err != nil {
		_ = os.Remove(out)
		return stats, fmt.Errorf("%s: %w", out, err)
	}
	return stats, nil
}
