package cli

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/report"
)

func (a *App) newURLCmd() *cobra.Command {
	var saveJSON, format string

	cmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Score a video by the metadata its platform publishes",
		Long: `Fetch a video page's title, description, uploader and tags and score them.

The backend is yt-dlp by default; --backend page scrapes Open Graph tags instead.

Example:
  aivd url https://www.youtube.com/watch?v=dQw4w9WgXcQ
  aivd url https://vimeo.com/76979871 --backend page --save-json result.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoURL, err := adapters.ValidateURL(args[0])
			if err != nil {
				return err
			}

			fetcher, err := a.metadataFetcher()
			if err != nil {
				return err
			}

			meta, err := fetcher.Fetch(cmd.Context(), videoURL)
			if err != nil {
				if !apperrors.IsSubjectUnavailable(err) {
					err = apperrors.NewFetchError(videoURL, err)
				}
				return err
			}
			if meta.URL == "" {
				meta.URL = videoURL
			}

			analyzer := a.analyzer()
			result := analyzer.AnalyzeMetadata(meta)
			if err := report.RenderText(a.out, result, analyzer.Threshold()); err != nil {
				return err
			}

			return a.export(saveJSON, format, result)
		},
	}

	cmd.Flags().StringVar(&saveJSON, "save-json", "", "path to save the analysis result")
	cmd.Flags().StringVar(&format, "format", "", "export format: json or yaml (default: from the file extension)")
	cmd.Flags().String("backend", "", "metadata backend: ytdlp or page")
	cmd.Flags().Duration("timeout", 0, "metadata fetch timeout")
	_ = a.v.BindPFlag("fetch.backend", cmd.Flags().Lookup("backend"))
	_ = a.v.BindPFlag("fetch.timeout", cmd.Flags().Lookup("timeout"))

	return cmd
}
