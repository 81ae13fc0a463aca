package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

// --- Class commands ---

var classCmd = &cobra.Command{
	Use:   "class",
	Short: "Manage object classes",
}

var classAddCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Add classes to the annotation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		for _, name := range args {
			if err := ws.AddClass(name); err != nil {
				return err
			}
			logger.Info("Added class", "class", classStyle.Render(storage.NormalizeClass(name)))
		}
		return nil
	},
}

var classListCmd = &cobra.Command{
	Use:   "list",
	Short: "List classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := getWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		classes, err := ws.Classes()
		if err != nil {
			return err
		}
		return output(cmd, classes, func(w io.Writer) {
			if len(classes) == 0 {
				fmt.Fprintln(w, dimStyle.Render("no classes"))
				return
			}
			for _, c := range classes {
				fmt.Fprintln(w, classStyle.Render(c))
			}
		})
	},
}

var classSetCmd = &cobra.Command{
	Use:   "set <id> <class>",
	Short: "Change the class of an object on every frame",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return editCurrent(cmd, func(ws *workspace.Workspace) error {
			if err := ws.ChangeClass(id, args[1]); err != nil {
				return err
			}
			logger.Info("Changed class",
				"id", idStyle.Render(itoa(id)),
				"class", classStyle.Render(storage.NormalizeClass(args[1])))
			return nil
		})
	},
}

func init() {
	classCmd.AddCommand(classAddCmd)
	classCmd.AddCommand(classListCmd)
	classCmd.AddCommand(classSetCmd)
}
