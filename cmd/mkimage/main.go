// Command mkimage is the thin CLI wrapper around internal/diskimage's
// Build algorithm: `mkimage [--extended] <bootblock> <kernel-elf>
// [more-elfs...]`, writing `image` in the current directory. The full
// host createimage tool (partitioning, filesystem population from a
// source tree) is an explicit Non-goal; this only concatenates kernel
// ELF segments behind a fixed bootblock, per spec §4.6/§6.
package main

import (
	"debug/elf"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/eduos/eduos/internal/diskimage"
)

const outputName = "image"

func main() {
	extended := pflag.Bool("extended", false, "Print per-segment debug information.")
	pflag.Parse()

	// Spec §6: "the tool never sets a non-zero exit code" — every failure
	// path below prints a diagnostic and returns, exit status 0.
	if err := run(*extended, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "mkimage:", err)
	}
}

func run(extended bool, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: mkimage [--extended] <bootblock> <kernel-elf> [more-elfs...]")
	}

	bootblock, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading bootblock: %w", err)
	}

	kernels := make([]*elf.File, 0, len(args)-1)
	for _, path := range args[1:] {
		f, err := elf.Open(path)
		if err != nil {
			return fmt.Errorf("opening kernel ELF %q: %w", path, err)
		}
		defer f.Close()
		kernels = append(kernels, f)

		if extended {
			printSegments(path, f)
		}
	}

	image, err := diskimage.Build(bootblock, kernels...)
	if err != nil {
		return fmt.Errorf("building image: %w", err)
	}

	if err := os.WriteFile(outputName, image, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputName, err)
	}
	return nil
}

func printSegments(path string, f *elf.File) {
	segs, err := diskimage.ReadSegments(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %s: %v\n", path, err)
		return
	}
	for i, s := range segs {
		fmt.Printf("mkimage: %s: segment %d: %d bytes\n", path, i, len(s.Data))
	}
}
