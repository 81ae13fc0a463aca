package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mfenderov/framemark/internal/cursor"
	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

type frameView struct {
	Frame   int              `json:"frame" yaml:"frame"`
	Frames  int              `json:"frames" yaml:"frames"`
	Records []storage.Record `json:"records" yaml:"records"`
}

func printFrame(cmd *cobra.Command, ws *workspace.Workspace, frame int) error {
	records, err := ws.Store().Get(frame, storage.Query{})
	if err != nil {
		return err
	}
	view := frameView{Frame: frame, Frames: ws.Frames(), Records: records}
	return output(cmd, view, func(w io.Writer) {
		fmt.Fprintln(w, titleStyle.Render("Frame "+itoa(frame))+" "+dimStyle.Render("of "+itoa(ws.Frames())))
		printRecords(w, records)
	})
}

// --- Frame commands ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the objects on a frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		frame, _ := cmd.Flags().GetInt("frame")
		if frame == 0 {
			frame = ws.CurrentFrame()
		}
		if frame < 1 || frame > ws.Frames() {
			return fmt.Errorf("frame %d of %d: %w", frame, ws.Frames(), workspace.ErrFrameOutOfRange)
		}
		return printFrame(cmd, ws, frame)
	},
}

var frameCmd = &cobra.Command{
	Use:   "frame [n|next|prev]",
	Short: "Show or change the current frame",
	Long: "Without an argument, print the current frame. Otherwise move to frame n,\n" +
		"or one frame forward or back. Moving forward with tracker.propagate\n" +
		"enabled forecasts the current objects onto the new frame.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		if len(args) == 1 {
			switch args[0] {
			case "next":
				err = ws.Next()
			case "prev":
				err = ws.Prev()
			default:
				n, convErr := strconv.Atoi(args[0])
				if convErr != nil {
					return fmt.Errorf("invalid frame %q", args[0])
				}
				err = ws.SetFrame(n)
			}
			if err != nil {
				return err
			}
		}
		return printFrame(cmd, ws, ws.CurrentFrame())
	},
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Forecast the current objects onto the next frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		n, err := ws.Track()
		if err != nil {
			return err
		}
		logger.Info("Tracked objects", "forecasts", successStyle.Render(itoa(n)))
		return nil
	},
}

// --- Find command ---

var findCmd = &cobra.Command{
	Use:   "find [id]",
	Short: "Find the frames of an object, or objects of a class",
	Long: "With an id, list every frame the object appears on. With --class,\n" +
		"list the objects of that class on the current frame.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		class, _ := cmd.Flags().GetString("class")
		if (len(args) == 0) == (class == "") {
			return errors.New("pass either an object id or --class")
		}

		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		var hits *cursor.Cursor[storage.Record]
		if class != "" {
			hits, err = ws.FindClass(class)
		} else {
			id, idErr := parseID(args[0])
			if idErr != nil {
				return idErr
			}
			hits, err = ws.FindObject(id)
		}
		if err != nil {
			return err
		}

		records := make([]storage.Record, 0, hits.Len())
		for {
			rec, _, err := hits.Next()
			if errors.Is(err, cursor.ErrEndOfSequence) {
				break
			}
			if err != nil {
				return err
			}
			records = append(records, rec)
		}

		return output(cmd, records, func(w io.Writer) {
			printRecords(w, records)
		})
	},
}

func init() {
	showCmd.Flags().Int("frame", 0, "frame to show (default: current frame)")
	findCmd.Flags().String("class", "", "find objects of this class on the current frame")
}
