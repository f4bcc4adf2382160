package main

import (
	"fmt"
	"strconv"
	"strings"

	"imgfs/internal/imgfs"

	"github.com/spf13/cobra"
)

const (
	defaultMaxFiles = 128
	maxThumbRes     = 128
	maxSmallRes     = 512
)

var (
	defaultThumb = imgfs.Box{Width: 64, Height: 64}
	defaultSmall = imgfs.Box{Width: 256, Height: 256}
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "imgfscmd",
		Short:         "Create, inspect and edit imgFS image store files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCreateCmd(),
		newListCmd(),
		newReadCmd(),
		newInsertCmd(),
		newDeleteCmd(),
		newSnapshotCmd(),
		newRestoreCmd(),
	)
	return root
}

// boxFlag is a pflag.Value holding a WxH resize target capped per side.
type boxFlag struct {
	box   imgfs.Box
	limit uint16
}

func (b *boxFlag) String() string { return b.box.String() }
func (b *boxFlag) Type() string   { return "WxH" }

func (b *boxFlag) Set(s string) error {
	box, err := parseBox(s, b.limit)
	if err != nil {
		return err
	}
	b.box = box
	return nil
}

func parseBox(s string, limit uint16) (imgfs.Box, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return imgfs.Box{}, fmt.Errorf("%w: %q is not WxH", imgfs.ErrResolution, s)
	}
	width, errW := strconv.ParseUint(w, 10, 16)
	height, errH := strconv.ParseUint(h, 10, 16)
	if errW != nil || errH != nil || width == 0 || height == 0 || width > uint64(limit) || height > uint64(limit) {
		return imgfs.Box{}, fmt.Errorf("%w: %q must be between 1x1 and %dx%d", imgfs.ErrResolution, s, limit, limit)
	}
	return imgfs.Box{Width: uint16(width), Height: uint16(height)}, nil
}

func openStore(path string, mode imgfs.Mode) (*imgfs.Store, error) {
	return imgfs.Open(path, mode, imgfs.Options{})
}
