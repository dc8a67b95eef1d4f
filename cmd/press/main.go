// Command press compresses and decompresses files with the codecs in this
// module, and benchmarks them against common ecosystem compressors.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pressio/press"
	"github.com/pressio/press/bench"

	// Codec registrations.
	_ "github.com/pressio/press/arith"
	_ "github.com/pressio/press/bwt"
	_ "github.com/pressio/press/deflate"
	_ "github.com/pressio/press/huffman"
	_ "github.com/pressio/press/lz77"
	_ "github.com/pressio/press/rle"
)

func main() {
	app := &cli.App{
		Name:  "press",
		Usage: "lossless compression toolbox",
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "compress a file with the named codec",
				ArgsUsage: "<codec> <input> <output>",
				Action:    compressAction,
			},
			{
				Name:      "decompress",
				Usage:     "decompress a container file (the codec is read from the header)",
				ArgsUsage: "<input> <output>",
				Action:    decompressAction,
			},
			{
				Name:   "codecs",
				Usage:  "list the available codec names",
				Action: codecsAction,
			},
			{
				Name:      "bench",
				Usage:     "benchmark every codec over the given files and print a Markdown report",
				ArgsUsage: "<file>...",
				Action:    benchAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "press: %v\n", err)
		os.Exit(1)
	}
}

func compressAction(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("usage: press compress <codec> <input> <output>")
	}
	name, in, out := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	codec, id, err := press.ByName(name)
	if err != nil {
		return fmt.Errorf("%s (have: %s)", err, strings.Join(press.Names(), ", "))
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	wrapped, err := press.Wrap(codec, id, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, wrapped, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d -> %d bytes (%.1f%%)\n", name, len(data), len(wrapped),
		ratio(len(wrapped), len(data))*100)
	return nil
}

func decompressAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: press decompress <input> <output>")
	}
	in, out := c.Args().Get(0), c.Args().Get(1)
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	raw, err := press.Unwrap(data)
	if err != nil {
		return err
	}
	return os.WriteFile(out, raw, 0o644)
}

func codecsAction(c *cli.Context) error {
	for _, name := range press.Names() {
		fmt.Println(name)
	}
	return nil
}

func benchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("usage: press bench <file>...")
	}
	var inputs []bench.Input
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, bench.Input{Name: filepath.Base(path), Data: data})
	}
	results, err := bench.Run(inputs)
	fmt.Print(bench.RenderMarkdown(results))
	return err
}

func ratio(compressed, original int) float64 {
	if original == 0 {
		return 1
	}
	return float64(compressed) / float64(original)
}
