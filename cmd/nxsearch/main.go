// Command nxsearch is a thin command-line façade over the search
// engine library: it indexes text and PDF files and runs keyword
// queries against an index.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/toloco/nxsearch"
)

var (
	flagBasedir string
	flagIndex   string
	flagDocID   uint64
)

func main() {
	root := &cobra.Command{
		Use:           "nxsearch",
		Short:         "Embeddable full-text search engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagBasedir, "basedir", ".nxsearch",
		"base directory holding indexes and stop-word files")
	root.PersistentFlags().StringVar(&flagIndex, "index", "default",
		"index name")

	addCmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Index text or PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().Uint64Var(&flagDocID, "id", 1,
		"document ID of the first file; later files increment from it")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a keyword query against the index",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	root.AddCommand(addCmd, searchCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nxsearch: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	engine, err := nxsearch.Open(flagBasedir)
	if err != nil {
		return err
	}
	defer engine.Close()

	idx, err := engine.OpenIndex(flagIndex)
	if err != nil {
		return err
	}

	docID := flagDocID
	for _, path := range args {
		text, err := readDocument(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := idx.Add(docID, text); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("indexed %s as doc %d\n", path, docID)
		docID++
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, err := nxsearch.Open(flagBasedir)
	if err != nil {
		return err
	}
	defer engine.Close()

	idx, err := engine.OpenIndex(flagIndex)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := idx.Search([]byte(query))
	if err != nil {
		return err
	}
	fmt.Printf("QUERY [%s] DOC COUNT %d\n", query, len(results))
	for _, r := range results {
		fmt.Printf("DOC %d, SCORE %f\n", r.DocID, r.Score)
	}
	return nil
}

// readDocument loads a file's text content. PDF files go through text
// extraction; everything else is treated as raw UTF-8 text.
func readDocument(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDFText(path)
	}
	return os.ReadFile(path)
}

// extractPDFText concatenates the plain text of every page, skipping
// pages that fail extraction.
func extractPDFText(path string) ([]byte, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no text content found in PDF")
	}
	return []byte(sb.String()), nil
}
