package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/report"
)

func (a *App) newAnalyzeCmd() *cobra.Command {
	var saveJSON, format string

	cmd := &cobra.Command{
		Use:   "analyze [video]",
		Short: "Score a local video file",
		Long: `Score a local video from its name, size, container and creation time.

Without a path, lists the .mp4 files in the video directory and asks which one to score.

Exit codes: 0 scored, 1 invalid input or selection, 2 file not found.

Example:
  aivd analyze ~/Downloads/clip.webm
  aivd analyze clip.mp4 --save-json result.json
  aivd analyze --dir ./videos`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				picked, err := a.pickVideo(a.cfg.ResolveVideoDir())
				if err != nil {
					return err
				}
				path = picked
			}

			info, err := adapters.StatVideo(path)
			if err != nil {
				return err
			}

			analyzer := a.analyzer()
			result := analyzer.AnalyzeFile(info)
			if err := report.RenderText(a.out, result, analyzer.Threshold()); err != nil {
				return err
			}

			return a.export(saveJSON, format, result)
		},
	}

	cmd.Flags().String("dir", "", "directory listed when no video is given (default: ~/Documents/Ai detector)")
	cmd.Flags().StringVar(&saveJSON, "save-json", "", "path to save the analysis result")
	cmd.Flags().StringVar(&format, "format", "", "export format: json or yaml (default: from the file extension)")
	_ = a.v.BindPFlag("cli.video_dir", cmd.Flags().Lookup("dir"))

	return cmd
}

// pickVideo lists the .mp4 files in dir and reads a 1-based choice from stdin
func (a *App) pickVideo(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("Error listing videos: %v", err), dir)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), ".mp4") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", apperrors.NewInvalidInputError("No MP4 files found in "+dir, dir)
	}
	sort.Strings(names)

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(a.out, "\nAvailable video files:\n%s\n", rule)
	for i, name := range names {
		sizeMB := 0.0
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
			sizeMB = float64(fi.Size()) / (1024 * 1024)
		}
		fmt.Fprintf(a.out, "  %d. %s (%.1f MB)\n", i+1, name, sizeMB)
	}
	fmt.Fprintf(a.out, "%s\n\nEnter number (1-%d): ", rule, len(names))

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", apperrors.NewInvalidInputError("Invalid input.")
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return "", apperrors.NewInvalidInputError("Invalid input.")
	}
	if choice < 1 || choice > len(names) {
		return "", apperrors.NewInvalidInputError("Invalid choice.", strconv.Itoa(choice))
	}

	selected := names[choice-1]
	fmt.Fprintf(a.out, "Selected: %s\n", selected)
	return filepath.Join(dir, selected), nil
}

// export writes result to path when one was requested
func (a *App) export(path, format string, result analysis.ScoreResult) error {
	if path == "" {
		return nil
	}

	f := report.FormatForPath(path)
	if format != "" {
		parsed, err := report.ParseFormat(format)
		if err != nil {
			return apperrors.NewInvalidInputError(err.Error(), format)
		}
		f = parsed
	}

	if err := report.SaveAs(path, result, f); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	fmt.Fprintf(a.out, "\nSaved result to %s\n", path)
	return nil
}
