// Package dffile reads and writes the document-frequency file format: one
// term and its count per line ("term<TAB>count" when written; any
// whitespace separator is accepted when read), blank lines ignored, any
// other line shape a format error. This is the external, portable form of a corpus's df
// table, used to seed a scorer's global stats independent of any one
// collection's local postings.
package dffile

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/simsearch/simsearch/internal/docsource"
	"github.com/simsearch/simsearch/internal/termvec"
)

// FormatError reports a malformed line in a document-frequency file,
// identified by its 1-based line number.
type FormatError struct {
	Line int
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dffile: bad line %d (expecting \"term<TAB>count\"): %q", e.Line, e.Text)
}

// Read parses a document-frequency file into a term->count map. Blank lines
// are skipped silently; any line with other than two whitespace-separated
// fields is a *FormatError identifying the offending line number.
func Read(r io.Reader) (map[string]int, error) {
	df := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &FormatError{Line: lineNo, Text: line}
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &FormatError{Line: lineNo, Text: line}
		}
		df[fields[0]] = count
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return df, nil
}

// Write serializes df as "term<TAB>count\n" lines, sorted by term so the
// output is byte-for-byte reproducible across runs.
func Write(w io.Writer, df map[string]int) error {
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for _, term := range terms {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", term, df[term]); err != nil {
			return err
		}
	}
	return nil
}

// Compute tokenizes each stream in streams under cfg and returns the
// resulting term->document-count table: the number of streams each term
// appears in at least once.
func Compute(streams []docsource.Named, cfg termvec.Config) (map[string]int, error) {
	df := make(map[string]int)
	for _, s := range streams {
		vec, err := termvec.Build(s.Reader, cfg)
		s.Reader.Close()
		if err != nil {
			return nil, fmt.Errorf("dffile: compute df for %s: %w", s.Name, err)
		}
		for term := range vec {
			df[term]++
		}
	}
	return df, nil
}
