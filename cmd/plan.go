package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/pipeline"
)

var (
	planText  string
	planFile  string
	planImage string
	planOut   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve a travel document into a geolocated itinerary",
	Long: "Runs the full pipeline on one document: extraction, normalization, " +
		"place resolution, route estimation, and itinerary assembly. Provide the " +
		"document as inline text, a text file, or an image.",
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planText, "text", "", "document text inline")
	planCmd.Flags().StringVar(&planFile, "file", "", "path to a text document")
	planCmd.Flags().StringVar(&planImage, "image", "", "path to a document image (png/jpeg/webp)")
	planCmd.Flags().StringVar(&planOut, "out", "", "write the result to this file instead of stdout")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate("plan"); err != nil {
		return err
	}

	doc, err := loadDocument()
	if err != nil {
		return err
	}

	environ, err := buildEnv(cmd.Context(), cfg)
	if err != nil {
		return eris.Wrap(err, "plan: build environment")
	}
	defer environ.Close()

	result, err := environ.Orchestrator.Run(cmd.Context(), doc)
	if err != nil {
		// The report still carries the failed stage; emit it before bailing.
		if result != nil {
			_ = writeResult(result)
		}
		return err
	}

	zap.L().Info("plan complete",
		zap.String("run_id", result.Report.RunID),
		zap.Int("stops", len(result.Itinerary.Stops())),
		zap.Int("diagnostics", len(result.Report.Diagnostics)),
	)

	return writeResult(result)
}

// loadDocument builds the pipeline document from whichever input flag was set.
// Exactly one of --text, --file, --image must be provided.
func loadDocument() (pipeline.Document, error) {
	set := 0
	for _, v := range []string{planText, planFile, planImage} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return pipeline.Document{}, eris.New("plan: provide exactly one of --text, --file, --image")
	}

	switch {
	case planText != "":
		return pipeline.Document{Text: planText}, nil
	case planFile != "":
		data, err := os.ReadFile(planFile)
		if err != nil {
			return pipeline.Document{}, eris.Wrapf(err, "plan: read %s", planFile)
		}
		return pipeline.Document{Text: string(data)}, nil
	default:
		data, err := os.ReadFile(planImage)
		if err != nil {
			return pipeline.Document{}, eris.Wrapf(err, "plan: read %s", planImage)
		}
		mediaType, err := imageMediaType(planImage)
		if err != nil {
			return pipeline.Document{}, err
		}
		return pipeline.Document{Image: data, ImageMediaType: mediaType}, nil
	}
}

func imageMediaType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".webp":
		return "image/webp", nil
	case ".gif":
		return "image/gif", nil
	default:
		return "", eris.Errorf("plan: unsupported image type %q", filepath.Ext(path))
	}
}

func writeResult(result any) error {
	out := os.Stdout
	if planOut != "" {
		f, err := os.Create(planOut)
		if err != nil {
			return eris.Wrapf(err, "plan: create %s", planOut)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return eris.Wrap(err, "plan: encode result")
	}
	return nil
}
