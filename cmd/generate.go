package cmd

import (
	"fmt"
	"time"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/tui"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		camera    bool
		screen    bool
		clipboard bool
		file      string
		speech    time.Duration
		format    string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Capture one input and print the generated comment",
		Example: `  quipcam generate --camera
  quipcam generate --file photo.jpg
  quipcam generate --speech 5s --format jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources []app.Command
			if camera {
				sources = append(sources, app.CaptureImage{Source: "camera"})
			}
			if screen {
				sources = append(sources, app.CaptureImage{Source: "screen"})
			}
			if clipboard {
				sources = append(sources, app.CaptureImage{Source: "clipboard"})
			}
			if file != "" {
				sources = append(sources, app.UploadFile{Path: file})
			}
			if speech > 0 {
				sources = append(sources, app.RecordFor{Duration: speech})
			}
			if len(sources) != 1 {
				return fmt.Errorf("choose exactly one of --camera, --screen, --clipboard, --file, --speech")
			}
			if format != "text" && format != "jsonl" {
				return fmt.Errorf("--format must be text or jsonl")
			}

			ui := tui.NewPipeIO(format, verbose)
			return runCommands(cmd.Context(), nav.PageMain, ui, sources[0], app.Generate{})
		},
	}

	cmd.Flags().BoolVar(&camera, "camera", false, "capture a photo from the webcam")
	cmd.Flags().BoolVar(&screen, "screen", false, "capture a screenshot")
	cmd.Flags().BoolVar(&clipboard, "clipboard", false, "use the image on the clipboard")
	cmd.Flags().StringVarP(&file, "file", "f", "", "use an image file")
	cmd.Flags().DurationVar(&speech, "speech", 0, "record speech for this long, e.g. 5s")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or jsonl")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show progress on stderr")

	return cmd
}
