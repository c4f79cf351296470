package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"graph-rag/internal/documents"
	"graph-rag/internal/query"
)

var ingestAsk string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>...",
	Short: "Ingest PDF files and optionally ask one question",
	Long: `Ingest one or more PDF files in a single process. With --ask the question
is answered against what was just ingested and the answer printed as markdown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		failed := 0
		for _, path := range args {
			res, err := ingestFile(cmd, a, path)
			if err != nil {
				logrus.WithError(err).WithField("path", path).Error("ingest failed")
				failed++
				continue
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}

		if ingestAsk != "" {
			rc, err := a.retriever.Retrieve(ctx, ingestAsk)
			if err != nil {
				return err
			}
			ans, err := query.Synthesize(rc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ans.Markdown)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func ingestFile(cmd *cobra.Command, a *app, path string) (*documents.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.documents.Ingest(cmd.Context(), filepath.Base(path), f)
}

func init() {
	ingestCmd.Flags().StringVar(&ingestAsk, "ask", "", "question to answer after ingestion")
}
