package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdfretriever/pdfretriever/internal/analysis"
	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/preview"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF for analysis and start a chat about it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireLogin(ctx); err != nil {
			return err
		}
		if err := requireKey(); err != nil {
			return err
		}

		path := args[0]
		info, err := preview.CheckPDF(path)
		if err != nil {
			return err
		}
		name := filepath.Base(path)
		if info.Size() > 10<<20 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s is %s. Max 10MB recommended, processing may be slow.\n",
				name, humanize.Bytes(uint64(info.Size())))
		}

		stderr := cmd.ErrOrStderr()
		pdfApp.Subscribe(func(e app.Event) {
			if e.Kind == app.WorkspaceChanged && e.Workspace.State == workspace.Uploading {
				fmt.Fprintf(stderr, "\rProcessing %s... %3d%%", name, e.Workspace.Progress)
			}
		})

		err = pdfApp.Workspace.UploadDocument(ctx, path)
		fmt.Fprintln(stderr)
		switch {
		case errors.Is(err, workspace.ErrUploadCanceled):
			return errors.New("upload cancelled")
		case err != nil:
			return describe(err)
		}

		snap := pdfApp.Workspace.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Analysis complete: %s\n", okStyle.Render("✓"), titleStyle.Render(snap.FileName))
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Chat "), snap.ChatID)
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Found"), analysis.Summary(snap.ProcessedData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
