package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mfenderov/framemark/internal/config"
	"github.com/mfenderov/framemark/internal/source"
	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

var (
	annotationPath string
	configPath     string
	outputFormat   string
	verbose        bool
	Version        = "dev"
	logger         = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})

	cfg config.Config
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("219"))

	frameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, source.ErrSourceNotFound) {
			logger.Error(err.Error(), "hint", "framemark relink <annotation> <video>")
		} else {
			logger.Error(err.Error())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "framemark",
	Short: "Polygon annotation of video frames",
	Long: titleStyle.Render("framemark") + " - Annotate objects in videos and image sequences\n\n" +
		"Annotations live in a single .atc file next to the footage. Objects are\n" +
		"polygons tracked across frames; forecasts on the next frame stay\n" +
		"provisional until they are edited or finalized.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown format %q: expected text, json or yaml", outputFormat)
		}

		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger.SetLevel(cfg.LogLevel())
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		log.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&annotationPath, "file", "f", "", "annotation file (default: last annotation)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(frameCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(classCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(relinkCmd)
	rootCmd.AddCommand(saveAsCmd)
	rootCmd.AddCommand(versionCmd)
}

func statePath() string {
	return config.StatePath(configPath)
}

// getWorkspace opens the annotation named by --file, or the last one used.
func getWorkspace(cmd *cobra.Command) (*workspace.Workspace, error) {
	path := annotationPath
	if path == "" {
		st, err := config.LoadState(statePath())
		if err != nil {
			return nil, err
		}
		path = st.LastAnnotation
	}
	if path == "" {
		return nil, errors.New("no annotation selected: pass --file or run framemark new")
	}
	return workspace.Open(cmd.Context(), cfg, path)
}

func remember(path string) {
	if err := config.Remember(statePath(), path); err != nil {
		logger.Warn("Failed to record last annotation", "err", err)
	}
}

// output writes v in the selected format. text renders the text form.
func output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid object id %q: %w", s, storage.ErrInvalidID)
	}
	return id, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func printRecords(w io.Writer, records []storage.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no objects"))
		return
	}
	for _, r := range records {
		printRecord(w, r)
	}
}

func printRecord(w io.Writer, r storage.Record) {
	state := dimStyle.Render("forecast")
	if r.Final {
		state = successStyle.Render("final")
	}
	fmt.Fprintln(w, frameStyle.Render("frame "+itoa(r.Frame))+"  "+
		idStyle.Render("#"+itoa(r.ObjectID))+" "+
		classStyle.Render(r.Class)+"  "+state+"  "+
		dimStyle.Render(r.Contour.String()))
}

// --- Version command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("framemark")+" "+dimStyle.Render(Version))
	},
}
