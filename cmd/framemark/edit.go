package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

func parseContour(args []string) (storage.Contour, error) {
	return storage.ParseContour(strings.Join(args, " "))
}

// editCurrent opens the workspace and runs fn on its current frame, then
// prints the frame.
func editCurrent(cmd *cobra.Command, fn func(ws *workspace.Workspace) error) error {
	ws, err := getWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := fn(ws); err != nil {
		return err
	}
	return printFrame(cmd, ws, ws.CurrentFrame())
}

// --- Edit commands ---

var addCmd = &cobra.Command{
	Use:   "add <class> <x y x y ...>",
	Short: "Draw a new object on the current frame",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contour, err := parseContour(args[1:])
		if err != nil {
			return err
		}
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			id, err := ws.Draw(args[0], contour)
			if err != nil {
				return err
			}
			logger.Info("Added object",
				"id", idStyle.Render(itoa(id)),
				"class", classStyle.Render(storage.NormalizeClass(args[0])))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an object from the current frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if err := ws.Delete(id); err != nil {
				return err
			}
			logger.Info("Deleted object", "id", idStyle.Render(itoa(id)))
			return nil
		})
	},
}

var modifyCmd = &cobra.Command{
	Use:   "modify <id> <x y x y ...>",
	Short: "Replace the contour of an object on the current frame",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		contour, err := parseContour(args[1:])
		if err != nil {
			return err
		}
		class, _ := cmd.Flags().GetString("class")
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if err := ws.Modify(id, class, contour); err != nil {
				return err
			}
			logger.Info("Modified object", "id", idStyle.Render(itoa(id)))
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <dx> <dy>",
	Short: "Shift an object on the current frame",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		dx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid dx %q", args[1])
		}
		dy, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid dy %q", args[2])
		}
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if err := ws.Move(id, dx, dy); err != nil {
				return err
			}
			logger.Info("Moved object", "id", idStyle.Render(itoa(id)), "dx", dx, "dy", dy)
			return nil
		})
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize [id]",
	Short: "Accept forecasts on the current frame",
	Long:  "Mark one object, or every object when no id is given, as final on the current frame.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if len(args) == 0 {
				return ws.FinalizeFrame()
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ws.FinalizeObject(id)
		})
	},
}

var combineCmd = &cobra.Command{
	Use:   "combine <from> <to>",
	Short: "Merge one object's track into another",
	Long: "Relabel every record of object <from> as object <to>, taking <to>'s class.\n" +
		"The objects must not share a frame.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseID(args[0])
		if err != nil {
			return err
		}
		to, err := parseID(args[1])
		if err != nil {
			return err
		}
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if err := ws.Combine(from, to); err != nil {
				return err
			}
			logger.Info("Combined objects",
				"from", idStyle.Render(itoa(from)),
				"to", idStyle.Render(itoa(to)))
			return nil
		})
	},
}

func init() {
	modifyCmd.Flags().String("class", "", "also change the class on this frame")
}
