package cli

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/scan"
)

func (a *App) newScanCmd() *cobra.Command {
	var (
		workers int
		asJSON  bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Score every video under a directory",
		Long: `Walk a directory tree and score every file whose extension is on the upload allow-list.

Results are sorted by path, so output is stable across runs and worker counts.

Example:
  aivd scan ~/Videos
  aivd scan ./clips --workers 8 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				format = "json"
			}

			summary, err := scan.Run(cmd.Context(), a.analyzer(), args[0], scan.Options{
				Workers:    workers,
				Extensions: a.cfg.Upload.AllowedExtensions,
				Logger:     a.logger.Logger,
			})
			if err != nil {
				return apperrors.NewSubjectNotFoundError(args[0], err)
			}

			switch strings.ToLower(format) {
			case "json":
				data, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(data))
				return err
			case "yaml", "yml":
				data, err := yaml.Marshal(summary)
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			case "", "text":
				a.renderScan(summary)
				return nil
			default:
				return apperrors.NewInvalidInputError(fmt.Sprintf("unknown format %q (want text, json or yaml)", format), format)
			}
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or yaml")

	return cmd
}

func (a *App) renderScan(summary scan.Summary) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(a.out, "\nScanning: %s\n%s\n", summary.Root, rule)

	for _, item := range summary.Items {
		if item.Error != "" {
			fmt.Fprintf(a.out, "  ERROR         %s: %s\n", item.Path, item.Error)
			continue
		}
		status := "AUTHENTIC"
		if item.Result.Verdict {
			status = "AI GENERATED"
		}
		fmt.Fprintf(a.out, "  %-12s  %.4f  %s\n", status, item.Result.Confidence, item.Path)
	}

	fmt.Fprintf(a.out, "%s\n", rule)
	fmt.Fprintf(a.out, "  Scanned: %d  Flagged: %d  Failed: %d\n", summary.Scanned, summary.Flagged, summary.Failed)
}
