package main

import (
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/extractor"
)

func newIngestCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Store, chunk and embed documents synchronously",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args)
			if err != nil {
				return c.fail(cmd, err)
			}
			if len(files) == 0 {
				return c.fail(cmd, fmt.Errorf("no supported files in %v", args))
			}

			failed := 0
			for _, path := range files {
				if err := c.ingestFile(cmd, path); err != nil {
					failed++
					fmt.Fprintf(c.out, "%s %s: %v\n", errorMark.Sprint("✗"), path, err)
				}
			}
			if failed > 0 {
				return c.fail(cmd, fmt.Errorf("%d of %d files failed", failed, len(files)))
			}
			return nil
		},
	}
}

func (c *cli) ingestFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(path)
	doc, err := c.app.IngestUC.Upload(cmd.Context(), name, mime.TypeByExtension(filepath.Ext(name)), f)
	if err != nil {
		return err
	}
	if stored, err := c.app.Corpus.GetByID(cmd.Context(), doc.ID); err == nil {
		doc = stored
	}
	fmt.Fprintf(c.out, "%s %s  %d chunks  %s\n", okMark.Sprint("✓"), name, doc.ChunkCount, dimMark.Sprint(doc.ID))
	return nil
}

// collectFiles expands directories into the supported files beneath them.
// Explicit file arguments are kept even when their format is unknown so the
// upload reports why it was rejected.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !extractor.Supported(d.Name(), "") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
