package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

// --- Session commands ---

var newCmd = &cobra.Command{
	Use:   "new <video>",
	Short: "Start annotating a video or image sequence",
	Long: "Start a new annotation. For an image sequence pass the first image;\n" +
		"following images are found by their frame number.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.New(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}
		defer ws.Close()

		classes, _ := cmd.Flags().GetStringSlice("class")
		for _, c := range classes {
			if err := ws.AddClass(c); err != nil {
				return err
			}
		}

		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			if err := ws.SaveAs(out); err != nil {
				return err
			}
		}
		remember(ws.Path())

		logger.Info("Created annotation",
			"file", dimStyle.Render(ws.Path()),
			"frames", frameStyle.Render(itoa(ws.Frames())))
		return printInfo(cmd, ws)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the annotation summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		return printInfo(cmd, ws)
	},
}

func printInfo(cmd *cobra.Command, ws *workspace.Workspace) error {
	info, err := ws.Info()
	if err != nil {
		return err
	}
	return output(cmd, info, func(w io.Writer) {
		saved := successStyle.Render("saved")
		if !info.Saved {
			saved = dimStyle.Render("unsaved, use save-as")
		}
		fmt.Fprintln(w, titleStyle.Render("Annotation"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  "+dimStyle.Render("File:")+"     "+info.Path+" ("+saved+")")
		fmt.Fprintln(w, "  "+dimStyle.Render("Source:")+"   "+info.Source)
		fmt.Fprintln(w, "  "+dimStyle.Render("Frame:")+"    "+frameStyle.Render(itoa(info.Frame)+" / "+itoa(info.Frames)))
		fmt.Fprintln(w, "  "+dimStyle.Render("Objects:")+"  "+successStyle.Render(itoa(info.Stats.Objects)))
		fmt.Fprintln(w, "  "+dimStyle.Render("Records:")+"  "+successStyle.Render(itoa(info.Stats.Records)))
		fmt.Fprintln(w, "  "+dimStyle.Render("Next id:")+"  "+idStyle.Render(itoa(info.MaxObjID+1)))
		for _, c := range info.Classes {
			fmt.Fprintln(w, "  "+dimStyle.Render("Class:")+"    "+classStyle.Render(c))
		}
	})
}

var saveAsCmd = &cobra.Command{
	Use:   "save-as <file.atc>",
	Short: "Save the annotation under a new name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.SaveAs(args[0]); err != nil {
			return err
		}
		remember(ws.Path())

		logger.Info("Saved annotation", "file", dimStyle.Render(ws.Path()))
		return nil
	},
}

var relinkCmd = &cobra.Command{
	Use:   "relink <file.atc> <video>",
	Short: "Point an annotation at a moved video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		video, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		if err := storage.UpdateSource(args[0], video); err != nil {
			return err
		}
		logger.Info("Relinked annotation",
			"file", dimStyle.Render(args[0]),
			"source", video)
		return nil
	},
}

func init() {
	newCmd.Flags().String("out", "", "save the new annotation to this .atc file")
	newCmd.Flags().StringSlice("class", nil, "classes to start with")
}
