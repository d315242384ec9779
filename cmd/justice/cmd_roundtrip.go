package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/justice/classfile"
)

func newRoundtripCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "roundtrip <file.class>...",
		Short: "Parse class files and check that writing them back reproduces the input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) != 1 {
				return fmt.Errorf("--output needs exactly one input file")
			}
			mismatches := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read class file: %w", err)
				}
				written, err := roundtrip(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if output != "" {
					if err := os.WriteFile(output, written, 0o644); err != nil {
						return fmt.Errorf("write class file: %w", err)
					}
				}
				if !bytes.Equal(data, written) {
					mismatches++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: differs at offset %d\n", path, firstDifference(data, written))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: identical (%d bytes)\n", path, len(data))
			}
			if mismatches > 0 {
				return fmt.Errorf("%d file(s) did not round-trip", mismatches)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the re-serialized class to this file")

	return cmd
}

// roundtrip parses data and serializes a deep copy of the result, so the
// copy is exercised along with the reader and writer.
func roundtrip(data []byte) ([]byte, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse class file: %w", err)
	}
	written, err := cf.Copy().Bytes()
	if err != nil {
		return nil, fmt.Errorf("write class file: %w", err)
	}
	return written, nil
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
