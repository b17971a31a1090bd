// Command simindex-df computes a document-frequency table over a batch of
// named documents (files or URLs, per internal/docsource) and writes it in
// the "term<TAB>count" format of internal/dffile.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/simsearch/simsearch/internal/dffile"
	"github.com/simsearch/simsearch/internal/docsource"
	"github.com/simsearch/simsearch/internal/termvec"
)

func main() {
	listFile := flag.String("list", "", "file of newline-separated document names to include, in addition to any positional names")
	outputFile := flag.String("output", "", "output file for the df table (default: stdout)")
	flag.Parse()

	names := flag.Args()
	if *listFile != "" {
		fromList, err := readList(*listFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "simindex-df: %v\n", err)
			os.Exit(1)
		}
		names = append(names, fromList...)
	}

	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "simindex-df: no document names given (pass them positionally or via --list)")
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "simindex-df: create %s: %v\n", *outputFile, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	for _, name := range names {
		fmt.Fprintf(os.Stderr, "Processing %s\n", name)
	}

	fetcher := docsource.DefaultFetcher()
	streams := fetcher.OpenAll(names)

	df, err := dffile.Compute(streams, termvec.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "simindex-df: %v\n", err)
		os.Exit(1)
	}

	if err := dffile.Write(out, df); err != nil {
		fmt.Fprintf(os.Stderr, "simindex-df: write output: %v\n", err)
		os.Exit(1)
	}
}

// readList reads newline-separated document names from path, skipping
// blank lines.
func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return names, nil
}
