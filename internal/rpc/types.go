package rpc

import (
	"encoding/json"

	"github.com/mfenderov/framemark/internal/storage"
)

// JSON-RPC 2.0 types

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Annotation error codes
const (
	ErrCodeNotFound      = -32001
	ErrCodeConflict      = -32002
	ErrCodeOutOfRange    = -32003
	ErrCodeEndOfSequence = -32004
	ErrCodeSource        = -32005
	ErrCodeNoSearch      = -32006
)

// Method parameters

type FrameParams struct {
	Frame int `json:"frame"`
}

type DrawParams struct {
	Class   string `json:"class"`
	Contour []int  `json:"contour"`
}

type ObjectParams struct {
	ID int `json:"id"`
}

type ModifyParams struct {
	ID      int    `json:"id"`
	Class   string `json:"class,omitempty"`
	Contour []int  `json:"contour"`
}

type MoveParams struct {
	ID int `json:"id"`
	DX int `json:"dx"`
	DY int `json:"dy"`
}

type ClassParams struct {
	ID    int    `json:"id,omitempty"`
	Class string `json:"class"`
}

type CombineParams struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type SaveParams struct {
	Path string `json:"path"`
}

// Method results

type FrameResult struct {
	Frame   int              `json:"frame"`
	Frames  int              `json:"frames"`
	Records []storage.Record `json:"records"`
}

type ObjectResult struct {
	ID int `json:"id"`
}

type FramesResult struct {
	ID     int   `json:"id"`
	Frames []int `json:"frames"`
}

type TrackResult struct {
	Forecasts int `json:"forecasts"`
}

type HistoryResult struct {
	Changed bool `json:"changed"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

type ClassesResult struct {
	Classes []string `json:"classes"`
}

type SearchResult struct {
	Record   *storage.Record `json:"record,omitempty"`
	Position int             `json:"position"`
	Total    int             `json:"total"`
}

type SaveResult struct {
	Path string `json:"path"`
}
