package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"health-report-agent/internal/config"
	"health-report-agent/internal/consultation"
	"health-report-agent/internal/extraction"
	"health-report-agent/internal/report"
)

type reportFlags struct {
	transcript string
	topic      string
	outDir     string
	engine     string
	font       string
	keywords   string
	verbose    bool
}

// NewReportCmd builds a PDF report from a transcript file without the server.
func NewReportCmd() *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF summary from a saved transcript",
		Example: `  report --transcript chat.json --topic migraine
  report --transcript chat.json --topic "sore throat" --engine gopdf --out /tmp/reports`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runReport(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.transcript, "transcript", "t", "", "JSON file with the message list")
	cmd.Flags().StringVar(&f.topic, "topic", "", "disease or concern the report is about")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "reports", "output directory")
	cmd.Flags().StringVar(&f.engine, "engine", config.EngineFPDF, "PDF engine: fpdf or gopdf")
	cmd.Flags().StringVar(&f.font, "font", "", "TTF font for the gopdf engine")
	cmd.Flags().StringVar(&f.keywords, "keywords", "", "TOML file overriding keyword lists and limits")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline steps to stderr")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func runReport(ctx context.Context, f reportFlags) (string, error) {
	transcript, err := readTranscript(f.transcript)
	if err != nil {
		return "", err
	}

	cfg := config.Config{
		Keywords: extraction.DefaultKeywords(),
		Limits:   extraction.DefaultLimits(),
	}
	if f.keywords != "" {
		if err := cfg.ApplyOverrides(f.keywords); err != nil {
			return "", err
		}
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if f.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	engine, err := report.NewEngine(f.engine, report.FontSet{Regular: f.font})
	if err != nil {
		return "", err
	}
	svc := report.NewService(
		extraction.NewClassifier(cfg.Keywords, cfg.Limits),
		report.NewRenderer(engine, f.outDir, log),
		report.AssembleOptions{Disclaimer: cfg.Prompts.Disclaimer},
		nil, 0,
		log,
	)
	return svc.Generate(ctx, transcript, f.topic)
}

func readTranscript(path string) ([]consultation.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var msgs []consultation.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return msgs, nil
}
