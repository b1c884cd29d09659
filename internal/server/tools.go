package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the drawing (PDF, PNG, JPEG, GIF, TIFF or BMP)",
}

var pageProperty = map[string]interface{}{
	"type":        "integer",
	"description": "1-based page number for PDFs. Default 1",
	"default":     1,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "bubble_detect",
			Description: "Find the numbered balloon callouts on a drawing page, trace the direction of each leader " +
				"and reconcile them with an optional dimension table. Returns the run document: bubbles with " +
				"centers, radii, directions and capture regions, plus a dimension map keyed by balloon number.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"page": pageProperty,
					"dimensions": map[string]interface{}{
						"type":                 "object",
						"description":          "Dimension table: balloon number (as a string key) to dimension text",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
					"validate": map[string]interface{}{
						"type":        "boolean",
						"description": "Send capture boxes to the configured vision validator. Default true",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name: "bubble_capture_box",
			Description: "Place the capture box of one expansion step for a bubble and its leader direction, " +
				"and return the box with the cropped region as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"page": pageProperty,
					"cx": map[string]interface{}{
						"type":        "integer",
						"description": "Bubble center X",
					},
					"cy": map[string]interface{}{
						"type":        "integer",
						"description": "Bubble center Y",
					},
					"radius": map[string]interface{}{
						"type":        "integer",
						"description": "Verified bubble radius",
					},
					"dx": map[string]interface{}{
						"type":        "number",
						"description": "Leader direction X component",
					},
					"dy": map[string]interface{}{
						"type":        "number",
						"description": "Leader direction Y component",
					},
					"step": map[string]interface{}{
						"type":        "integer",
						"description": "0-based expansion step (0 = 128x128 ... 3 = 1024x512). Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned crop. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "cx", "cy", "radius", "dx", "dy"},
			},
		},
		{
			Name:        "bubble_overlay",
			Description: "Draw the detected bubbles, their numbers, leader rays and first capture boxes on the page and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"page": pageProperty,
					"circle_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for bubble outlines. Default #FF0000",
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for capture boxes. Default #00A000",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "dimension_confidence",
			Description: "Score how closely two dimension strings agree (1.0 identical, 0.0 unrelated) after whitespace and case normalization, and show their OCR-corrected forms.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": map[string]interface{}{
						"type":        "string",
						"description": "First dimension, e.g. from the table",
					},
					"b": map[string]interface{}{
						"type":        "string",
						"description": "Second dimension, e.g. from the drawing",
					},
				},
				"required": []string{"a", "b"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
