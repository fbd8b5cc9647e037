package cmd

import (
	"bufio"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/storage"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store and reassemble PNG chunks",
		Long: `Manage the chunk archive: a local database holding chunk frames by ID
and manifests that reproduce whole PNG files.`,
	}

	cmd.AddCommand(
		newArchivePutCmd(),
		newArchiveGetCmd(),
		newArchiveListCmd(),
		newArchiveAssembleCmd(),
	)
	return cmd
}

// withStore opens the archive for the duration of fn
func withStore(fn func(*storage.ChunkStore) error) error {
	store, err := container.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newArchivePutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <file>",
		Short: "Archive every chunk of a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withStore(func(store *storage.ChunkStore) error {
				fileID, ids, err := store.PutFile(bufio.NewReader(f), container.ReaderConfig(args[0]))
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "file %s\n", fileID)
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "chunk %s\n", id)
				}
				return nil
			})
		},
	}
}

func newArchiveGetCmd() *cobra.Command {
	var frame bool
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the data of an archived chunk",
		Long: `Print the data of an archived chunk, or its complete wire frame with
--frame. Use --output to write to a file instead of stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			return withStore(func(store *storage.ChunkStore) error {
				var body []byte
				if frame {
					body, err = store.Frame(id)
				} else {
					chunk, getErr := store.Get(id)
					if getErr == nil {
						body = chunk.Data
					}
					err = getErr
				}
				if err != nil {
					return err
				}

				if output != "" {
					return os.WriteFile(output, body, 0600)
				}
				_, err = cmd.OutOrStdout().Write(body)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&frame, "frame", false, "Print the full length/type/data/CRC frame")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived chunks, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *storage.ChunkStore) error {
				entries, err := store.List(limit)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintf(w, "ID\tTYPE\tLENGTH\tCREATED\n")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.ID, e.Type, e.Length, e.Created.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of chunks to list (0 = all)")
	return cmd
}

func newArchiveAssembleCmd() *cobra.Command {
	var file bool

	cmd := &cobra.Command{
		Use:   "assemble <out> <id>...",
		Short: "Write archived chunks out as a PNG file",
		Long: `Write the PNG signature followed by the given archived chunks, in order.
With --file, the single id is a file ID from "archive put" and its manifest
supplies the chunks.

Examples:
  pngframe archive assemble out.png 2Vh... 2Vi... 2Vj...
  pngframe archive assemble out.png --file 2Vk...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]ksuid.KSUID, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := ksuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			if file && len(ids) != 1 {
				return fmt.Errorf("--file takes exactly one file id, got %d", len(ids))
			}

			return withStore(func(store *storage.ChunkStore) error {
				f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
				if err != nil {
					return err
				}
				buffered := bufio.NewWriter(f)
				dst := bytestream.NewWriterDestination(buffered)

				if file {
					err = store.AssembleFile(dst, ids[0])
				} else {
					err = store.Assemble(dst, ids)
				}
				if err == nil {
					err = buffered.Flush()
				}
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(args[0])
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&file, "file", false, "Treat the id as an archived file manifest")
	return cmd
}
