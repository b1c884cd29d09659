package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/bubble-tracer/internal/capture"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/dimension"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "bubble_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "bubble_detect":
		return s.handleBubbleDetect(ctx, args)
	case "bubble_capture_box":
		return s.handleBubbleCaptureBox(args)
	case "bubble_overlay":
		return s.handleBubbleOverlay(ctx, args)
	case "dimension_confidence":
		return s.handleDimensionConfidence(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// pageIndex converts a 1-based page argument to an index. Zero means the
// first page.
func pageIndex(page int) (int, error) {
	if page < 0 {
		return 0, fmt.Errorf("page must be positive, got %d", page)
	}
	return max(0, page-1), nil
}

func (s *Server) loadPage(path string, page int) (*imaging.Page, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	idx, err := pageIndex(page)
	if err != nil {
		return nil, err
	}
	return s.cache.Load(path, idx, s.cfg.Pipeline.DPI)
}

// === Detection ===

type bubbleDetectArgs struct {
	Path       string            `json:"path"`
	Page       int               `json:"page"`
	Dimensions map[string]string `json:"dimensions"`
	Validate   *bool             `json:"validate"`
}

func parseDimensions(in map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(in))
	for k, v := range in {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("dimension key %q is not a balloon number", k)
		}
		out[n] = v
	}
	return out, nil
}

func (s *Server) handleBubbleDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a bubbleDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Path) == "" {
		return nil, errors.New("path is required")
	}
	idx, err := pageIndex(a.Page)
	if err != nil {
		return nil, err
	}
	dims, err := parseDimensions(a.Dimensions)
	if err != nil {
		return nil, err
	}

	pipe := s.full
	if a.Validate != nil && !*a.Validate {
		pipe = s.preview
	}
	res, err := pipe.Run(ctx, pipeline.Input{Path: a.Path, Page: idx, Dimensions: dims})
	if errors.Is(err, imaging.ErrUnreadableImage) {
		return nil, err
	}
	// Other failures leave a partial document with status "error".
	return res, nil
}

// === Capture boxes ===

type bubbleCaptureBoxArgs struct {
	Path   string  `json:"path"`
	Page   int     `json:"page"`
	CX     int     `json:"cx"`
	CY     int     `json:"cy"`
	Radius int     `json:"radius"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Step   int     `json:"step"`
	Scale  float64 `json:"scale"`
}

// CaptureBoxResult is a placed capture box with its crop.
type CaptureBoxResult struct {
	capture.Placement
	Usable bool                `json:"usable"`
	Crop   *imaging.CropResult `json:"crop,omitempty"`
}

func (s *Server) handleBubbleCaptureBox(args json.RawMessage) (interface{}, error) {
	var a bubbleCaptureBoxArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Step < 0 || a.Step >= len(s.cfg.Capture.Steps) {
		return nil, fmt.Errorf("step must be in 0..%d, got %d", len(s.cfg.Capture.Steps)-1, a.Step)
	}
	if a.Radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", a.Radius)
	}
	n := math.Hypot(a.DX, a.DY)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, errors.New("direction must be a non-zero vector")
	}

	page, err := s.loadPage(a.Path, a.Page)
	if err != nil {
		return nil, err
	}

	planner := capture.NewPlanner(s.cfg.Capture, page.Width, page.Height)
	b := detection.VerifiedBubble{CX: a.CX, CY: a.CY, Radius: a.Radius}
	pl := planner.Place(b, leader.Direction{DX: a.DX / n, DY: a.DY / n}, a.Step)

	out := &CaptureBoxResult{Placement: pl, Usable: planner.Usable(pl)}
	if out.Usable {
		r := pl.Box.Rect()
		out.Crop, err = imaging.Crop(page.Color, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, a.Scale)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Overlay ===

type bubbleOverlayArgs struct {
	Path        string `json:"path"`
	Page        int    `json:"page"`
	CircleColor string `json:"circle_color"`
	BoxColor    string `json:"box_color"`
}

func (s *Server) handleBubbleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a bubbleOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path, a.Page)
	if err != nil {
		return nil, err
	}
	res, err := s.preview.RunPage(ctx, a.Path, page, nil)
	if err != nil {
		return nil, err
	}
	return imaging.Overlay(page.Color, res.Marks(), imaging.OverlayOptions{
		CircleColor: a.CircleColor,
		BoxColor:    a.BoxColor,
	})
}

// === Dimension matching ===

type dimensionConfidenceArgs struct {
	A string `json:"a"`
	B string `json:"b"`
}

// DimensionConfidenceResult compares two dimension strings.
type DimensionConfidenceResult struct {
	Confidence float64 `json:"confidence"`
	Similar    bool    `json:"similar"`
	// NormalizedA and NormalizedB are the OCR-corrected forms, and
	// NormalizedConfidence scores them.
	NormalizedA          string  `json:"normalized_a"`
	NormalizedB          string  `json:"normalized_b"`
	NormalizedConfidence float64 `json:"normalized_confidence"`
}

func (s *Server) handleDimensionConfidence(args json.RawMessage) (interface{}, error) {
	var a dimensionConfidenceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	na, nb := dimension.NormalizeDimension(a.A), dimension.NormalizeDimension(a.B)
	return &DimensionConfidenceResult{
		Confidence:           dimension.ConfidenceScore(a.A, a.B),
		Similar:              dimension.Similar(a.A, a.B, s.cfg.Matcher.SimilarThreshold),
		NormalizedA:          na,
		NormalizedB:          nb,
		NormalizedConfidence: dimension.ConfidenceScore(na, nb),
	}, nil
}
