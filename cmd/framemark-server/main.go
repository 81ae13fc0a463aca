package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfenderov/framemark/internal/config"
	"github.com/mfenderov/framemark/internal/rpc"
	"github.com/mfenderov/framemark/internal/workspace"
)

var (
	Version = "dev"

	annotationPath string
	videoPath      string
	configPath     string
	verbose        bool
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "framemark-server",
	Short:         "Serve one annotation as line-delimited JSON-RPC over stdio",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log.SetLevel(cfg.LogLevel())
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		statePath := config.StatePath(configPath)
		ws, err := openWorkspace(cmd.Context(), cfg, statePath)
		if err != nil {
			return err
		}
		defer ws.Close()

		handler := rpc.NewHandler(ws)
		handler.OnSave = func(path string) {
			if err := config.Remember(statePath, path); err != nil {
				log.Warn("failed to record last annotation", "err", err)
			}
		}

		log.Info("serving annotation", "file", ws.Path(), "frames", ws.Frames())
		server := &Server{handler: handler, out: os.Stdout}
		return server.Run(os.Stdin)
	},
}

func init() {
	rootCmd.Flags().StringVar(&annotationPath, "file", "", "annotation file (default: last annotation)")
	rootCmd.Flags().StringVar(&videoPath, "video", "", "start a new annotation of this video or image sequence")
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.MarkFlagsMutuallyExclusive("file", "video")
}

func openWorkspace(ctx context.Context, cfg config.Config, statePath string) (*workspace.Workspace, error) {
	if videoPath != "" {
		return workspace.New(ctx, cfg, videoPath)
	}

	path := annotationPath
	if path == "" {
		st, err := config.LoadState(statePath)
		if err != nil {
			return nil, err
		}
		path = st.LastAnnotation
	}
	if path == "" {
		return nil, errors.New("no annotation to open: pass --file or --video")
	}

	ws, err := workspace.Open(ctx, cfg, path)
	if err != nil {
		return nil, err
	}
	if ws.IsSaved() {
		if err := config.Remember(statePath, ws.Path()); err != nil {
			log.Warn("failed to record last annotation", "err", err)
		}
	}
	return ws, nil
}

// Server handles JSON-RPC communication over a line-delimited stream.
type Server struct {
	handler *rpc.Handler
	out     io.Writer
}

// Run reads requests from in until EOF.
func (s *Server) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	// Contours of large polygons make long lines
	const maxScannerSize = 10 * 1024 * 1024 // 10MB
	buf := make([]byte, maxScannerSize)
	scanner.Buffer(buf, maxScannerSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpc.Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, &rpc.Error{Code: rpc.ErrCodeParse, Message: "Parse error", Data: err.Error()})
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *rpc.Request) {
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.sendError(req.ID, &rpc.Error{Code: rpc.ErrCodeInvalidRequest, Message: "Invalid request"})
		return
	}

	switch req.Method {
	case "initialize":
		s.sendResult(req.ID, map[string]any{
			"name":    "framemark",
			"version": Version,
			"methods": s.handler.Methods(),
		})
		return
	}

	result, err := s.handler.Call(req.Method, req.Params)
	if req.ID == nil {
		// No response for notifications
		if err != nil {
			log.Warn("notification failed", "method", req.Method, "err", err)
		}
		return
	}
	if err != nil {
		log.Debug("call failed", "method", req.Method, "err", err)
		s.sendError(req.ID, rpc.ErrorFor(err))
		return
	}
	s.sendResult(req.ID, result)
}

func (s *Server) sendResult(id, result any) {
	s.send(rpc.Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id any, rpcErr *rpc.Error) {
	s.send(rpc.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	})
}

func (s *Server) send(resp rpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error("failed to marshal response", "err", err)
		return
	}
	fmt.Fprintln(s.out, string(data))
}
