package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	file  string
	index string
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Index raw event documents from a JSON array file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seed(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "JSON file holding an array of event documents")
	cmd.Flags().StringVar(&opts.index, "index", "", "target index (default: SOURCE_INDEX with * replaced by \"seed\")")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func seed(ctx context.Context, opts *seedOptions) error {
	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	docs, err := readSeedDocuments(f)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	index := seedIndex(opts.index, a.cfg.SourceIndex)
	for i, doc := range docs {
		id, err := a.es.IndexEvent(ctx, index, doc)
		if err != nil {
			return fmt.Errorf("seed document %d: %w", i, err)
		}
		a.logger.Debug("seeded event", "index", index, "doc_id", id)
	}
	if err := a.es.Refresh(ctx, index); err != nil {
		return err
	}

	a.logger.Info("seed complete", "index", index, "documents", len(docs))
	return nil
}

func readSeedDocuments(r io.Reader) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return docs, nil
}

// seedIndex picks a concrete index; SOURCE_INDEX is usually a pattern.
func seedIndex(flag, sourceIndex string) string {
	if flag != "" {
		return flag
	}
	return strings.ReplaceAll(sourceIndex, "*", "seed")
}
