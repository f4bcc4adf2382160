package main

import (
	"fmt"
	"os"
	"path/filepath"

	"imgfs/internal/imgcodec"
	"imgfs/internal/imgfs"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var maxFiles uint32
	thumb := &boxFlag{box: defaultThumb, limit: maxThumbRes}
	small := &boxFlag{box: defaultSmall, limit: maxSmallRes}

	cmd := &cobra.Command{
		Use:   "create <imgFS_filename>",
		Short: "Create a new empty imgFS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxFiles == 0 {
				return fmt.Errorf("%w: --max-files must be positive", imgfs.ErrInvalidArgument)
			}
			st, err := imgfs.Create(args[0], imgfs.Layout{
				Capacity: maxFiles,
				Thumb:    thumb.box,
				Small:    small.box,
			}, imgfs.Options{})
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) written\n", uint64(maxFiles)+1)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&maxFiles, "max-files", defaultMaxFiles, "maximum number of images")
	cmd.Flags().Var(thumb, "thumb-res", fmt.Sprintf("thumbnail box, at most %dx%d", maxThumbRes, maxThumbRes))
	cmd.Flags().Var(small, "small-res", fmt.Sprintf("small image box, at most %dx%d", maxSmallRes, maxSmallRes))
	return cmd
}

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <imgFS_filename>",
		Short: "Print the header and every stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(args[0], imgfs.ReadOnly)
			if err != nil {
				return err
			}
			defer st.Close()
			if !asJSON {
				st.Print(cmd.OutOrStdout())
				return nil
			}
			data, err := st.ListJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, `print {"Images":[...]} instead of the full listing`)
	return cmd
}

func newReadCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "read <imgFS_filename> <imgID> [original|orig|thumbnail|thumb|small]",
		Short: "Extract one rendition of an image to <imgID>_<res>.<ext>",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := imgfs.Original
			if len(args) == 3 {
				var err error
				if res, err = imgfs.ParseResolution(args[2]); err != nil {
					return err
				}
			}
			// derived renditions may have to be written back
			st, err := openStore(args[0], imgfs.ReadWrite)
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := st.Read(args[1], res)
			if err != nil {
				return err
			}
			name := filepath.Join(outDir, outputName(args[1], res, data))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return fmt.Errorf("%w: %v", imgfs.ErrIO, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the extracted file")
	return cmd
}

func newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <imgFS_filename> <imgID> <filename>",
		Short: "Add an image file under a new identifier",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("%w: %v", imgfs.ErrIO, err)
			}
			st, err := openStore(args[0], imgfs.ReadWrite)
			if err != nil {
				return err
			}
			defer st.Close()
			_, err = st.Insert(data, args[1])
			return err
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <imgFS_filename> <imgID>",
		Short: "Remove an image from the listing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(args[0], imgfs.ReadWrite)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(args[1])
		},
	}
}

// outputName is the file read writes for one rendition. Path elements in
// the identifier are dropped so the file stays inside the output directory.
func outputName(id string, res imgfs.Resolution, data []byte) string {
	base := filepath.Base(filepath.Clean("/" + filepath.ToSlash(id)))
	if base == "/" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return fmt.Sprintf("%s_%s%s", base, res, imgcodec.Extension(data))
}
