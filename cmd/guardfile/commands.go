package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpl-au/guardfile"
)

// open wraps path in a guarded handle using the --no-lock policy.
func open(opts *options, path string, flag int) (*guardfile.File, error) {
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	opts.logger.Debug("opened file", "path", path, "no_lock", opts.noLock)
	return guardfile.New(f, guardfile.Config{NoLock: opts.noLock}), nil
}

func newProbeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [path]",
		Short: "Run the read/write/seek/resize checks against a scratch file",
		Long: `Creates or truncates the file at path and runs sequential, positioned,
vectored, resize and sync checks through a guarded handle. Existing
content is destroyed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := open(opts, args[0], os.O_RDWR|os.O_CREATE)
			if err != nil {
				return err
			}
			defer f.Close()

			report := runProbe(f, opts.logger)
			var text strings.Builder
			for _, s := range report.Steps {
				status := "ok"
				if !s.OK {
					status = "FAIL: " + s.Error
				}
				fmt.Fprintf(&text, "%-18s %s\n", s.Name, status)
			}
			fmt.Fprintf(&text, "%d/%d passed", report.Passed, len(report.Steps))

			if err := emit(cmd.OutOrStdout(), opts, report, text.String()); err != nil {
				return err
			}
			if report.Passed != len(report.Steps) {
				return fmt.Errorf("%d probe steps failed", len(report.Steps)-report.Passed)
			}
			return nil
		},
	}
}

// statResult is the printable form of guardfile.Metadata.
type statResult struct {
	Path     string     `json:"path"`
	Size     int64      `json:"size"`
	Mode     string     `json:"mode"`
	Modified time.Time  `json:"modified"`
	Accessed *time.Time `json:"accessed,omitempty"`
	Changed  *time.Time `json:"changed,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
}

// optional drops timestamps the platform did not report.
func optional(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newStatCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stat [path]",
		Short: "Print file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := open(opts, args[0], os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()

			md, err := f.Metadata()
			if err != nil {
				return err
			}
			res := statResult{
				Path:     args[0],
				Size:     md.Len(),
				Mode:     md.Mode().String(),
				Modified: md.ModTime(),
				Accessed: optional(md.Accessed),
				Changed:  optional(md.Changed),
				Created:  optional(md.Created),
			}

			text := fmt.Sprintf("path:     %s\nsize:     %d\nmode:     %s\nmodified: %s",
				res.Path, res.Size, res.Mode, res.Modified.Format(time.RFC3339Nano))
			if res.Accessed != nil {
				text += "\naccessed: " + res.Accessed.Format(time.RFC3339Nano)
			}
			if res.Changed != nil {
				text += "\nchanged:  " + res.Changed.Format(time.RFC3339Nano)
			}
			if res.Created != nil {
				text += "\ncreated:  " + res.Created.Format(time.RFC3339Nano)
			}
			return emit(cmd.OutOrStdout(), opts, res, text)
		},
	}
}

type checksumResult struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"`
	Checksum  string `json:"checksum"`
}

func newChecksumCommand(opts *options) *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "checksum [path]",
		Short: "Hash the file content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := guardfile.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			f, err := open(opts, args[0], os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()

			sum, err := f.Checksum(alg)
			if err != nil {
				return err
			}
			res := checksumResult{Path: args[0], Algorithm: guardfile.AlgorithmName(alg), Checksum: sum}
			return emit(cmd.OutOrStdout(), opts, res, sum+"  "+args[0])
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "xxh3", "Checksum algorithm (xxh3, fnv1a, blake2b)")
	return cmd
}

type truncateResult struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func newTruncateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate [path] [size]",
		Short: "Truncate or extend a file to exactly size bytes and sync it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || size < 0 {
				return fmt.Errorf("invalid size %q", args[1])
			}
			f, err := open(opts, args[0], os.O_RDWR)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.SetLen(size); err != nil {
				return err
			}
			if err := f.SyncAll(); err != nil {
				return err
			}
			opts.logger.Info("resized file", "path", args[0], "size", size)

			res := truncateResult{Path: args[0], Size: size}
			return emit(cmd.OutOrStdout(), opts, res, fmt.Sprintf("%s: %d bytes", args[0], size))
		},
	}
}

type snapshotResult struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Size      int64  `json:"size"`
	Algorithm string `json:"algorithm"`
	Checksum  string `json:"checksum"`
}

func newSnapshotCommand(opts *options) *cobra.Command {
	var algorithm string
	var level int

	cmd := &cobra.Command{
		Use:   "snapshot [path] [out]",
		Short: "Write a compressed snapshot of path to out",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := guardfile.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			src, err := open(opts, args[0], os.O_RDONLY)
			if err != nil {
				return err
			}
			defer src.Close()

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			hdr, err := guardfile.Dump(out, src, guardfile.SnapshotConfig{Algorithm: alg, Level: level})
			if err != nil {
				out.Close()
				os.Remove(args[1])
				return err
			}
			if err := out.Sync(); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			opts.logger.Info("snapshot written", "source", args[0], "target", args[1], "size", hdr.Size)

			res := snapshotResult{
				Source:    args[0],
				Target:    args[1],
				Size:      hdr.Size,
				Algorithm: guardfile.AlgorithmName(hdr.Algorithm),
				Checksum:  hdr.Checksum,
			}
			return emit(cmd.OutOrStdout(), opts, res,
				fmt.Sprintf("%s -> %s (%d bytes, %s %s)", res.Source, res.Target, res.Size, res.Algorithm, res.Checksum))
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "xxh3", "Checksum algorithm (xxh3, fnv1a, blake2b)")
	cmd.Flags().IntVar(&level, "level", guardfile.LevelFastest, "zstd level (1 fastest to 4 best)")
	return cmd
}

func newRestoreCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [snapshot] [path]",
		Short: "Replace the content of path with a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			dst, err := open(opts, args[1], os.O_RDWR|os.O_CREATE)
			if err != nil {
				return err
			}
			defer dst.Close()

			hdr, err := guardfile.Restore(dst, in)
			if err != nil {
				opts.logger.Error("restore failed", "snapshot", args[0], "path", args[1], "error", err)
				return err
			}
			opts.logger.Info("snapshot restored", "snapshot", args[0], "path", args[1], "size", hdr.Size)

			res := snapshotResult{
				Source:    args[0],
				Target:    args[1],
				Size:      hdr.Size,
				Algorithm: guardfile.AlgorithmName(hdr.Algorithm),
				Checksum:  hdr.Checksum,
			}
			return emit(cmd.OutOrStdout(), opts, res,
				fmt.Sprintf("%s -> %s (%d bytes verified)", res.Source, res.Target, res.Size))
		},
	}
}
