// Command gdrec inspects and extracts distributed game packages.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/gdrec/gdrec/bytecode"
	"github.com/gdrec/gdrec/pack"
	"github.com/gdrec/gdrec/resource"
	"github.com/gdrec/gdrec/stream"
)

var (
	flagKey     string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "gdrec",
		Short:         "Inspect and extract distributed game packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagKey, "key", "", "32-byte encryption key as 64 hex characters")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(lsCmd(), extractCmd(), probeCmd(), decompileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func logger() hclog.Logger {
	level := hclog.Warn
	if flagVerbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{Name: "gdrec", Level: level})
}

func packKey() (*[32]byte, error) {
	if flagKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(flagKey)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("key must be 64 hex characters")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func openPack(path string) (*pack.Reader, error) {
	key, err := packKey()
	if err != nil {
		return nil, err
	}
	return pack.Open(path, pack.OpenOptions{Key: key, Logger: logger()})
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <pack>",
		Short: "List the files in a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openPack(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			fmt.Printf("%s pack, engine %s, %d files\n", r.Type, r.Version.String, len(r.List()))
			for _, p := range r.List() {
				info, _ := r.FileInfo(p)
				flag := ""
				if info.Encrypted {
					flag = " (encrypted)"
				}
				fmt.Printf("%12d  %s%s\n", info.Size, p, flag)
			}
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "extract <pack>",
		Short: "Extract every file from a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openPack(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			for _, p := range r.List() {
				data, err := r.ReadFile(p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				rel := strings.TrimPrefix(p, "res://")
				dst := filepath.Join(outDir, filepath.FromSlash(rel))
				if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dst, data, 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("extracted %d files to %s\n", len(r.List()), outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "extracted", "output directory")
	return cmd
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Report the engine and format version of a resource file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := resource.Probe(stream.NewReaderBytes(data), logger())
			if err != nil {
				return err
			}
			fmt.Printf("type:    %s\n", info.Type)
			fmt.Printf("engine:  %d.%d", info.EngineMajor, info.EngineMinor)
			if info.SuspectVersion {
				fmt.Printf(" (inferred)")
			}
			fmt.Println()
			fmt.Printf("format:  %d\n", info.FormatVersion)
			if info.ScriptClass != "" {
				fmt.Printf("script class: %s\n", info.ScriptClass)
			}
			if info.Compressed {
				fmt.Printf("compressed: %s\n", info.CompressionMode)
			}
			return nil
		},
	}
}

func decompileCmd() *cobra.Command {
	var revision string
	cmd := &cobra.Command{
		Use:   "decompile <file.gdc>",
		Short: "Decompile a compiled script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var ver *bytecode.Version
			if revision != "" {
				ver = bytecode.ForEngineVersion(revision)
				if ver == nil {
					return fmt.Errorf("unknown engine version %q", revision)
				}
			} else {
				bv := bytecode.ReadVersion(data)
				for _, v := range bytecode.Versions {
					if v.BytecodeVersion == bv {
						ver = v
						break
					}
				}
				if ver == nil {
					return fmt.Errorf("no revision for bytecode version %d; pass --engine", bv)
				}
			}
			src, err := bytecode.Decompile(data, ver)
			if err != nil {
				return err
			}
			fmt.Print(src)
			return nil
		},
	}
	cmd.Flags().StringVar(&revision, "engine", "", `engine version to decompile as, e.g. "3.1"`)
	return cmd
}
