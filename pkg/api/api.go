// Package api exposes the resolution engine over HTTP for the two caller
// classes: the step executor (variable ingestion, parameter resolution,
// terminal cleanup) and the editing UI (validation, listing, suggestions).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pollyan/intent-test-tools-sub001/pkg/engine"
	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// Server is the HTTP API server for the resolution engine.
type Server struct {
	app    *fiber.App
	engine *engine.Engine
}

// New creates a new API server around an engine.
func New(e *engine.Engine) *Server {
	srv := &Server{engine: e}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Executor-facing
	app.Post("/v1/executions/:execution/variables", srv.putVariable)
	app.Post("/v1/executions/:execution/steps/complete", srv.completeStep)
	app.Post("/v1/executions/:execution/resolve", srv.resolveParams)
	app.Delete("/v1/executions/:execution", srv.terminateExecution)

	// UI-facing
	app.Get("/v1/executions", srv.listExecutions)
	app.Get("/v1/executions/:execution/variables", srv.listVariables)
	app.Get("/v1/executions/:execution/suggestions", srv.suggestVariables)
	app.Get("/v1/executions/:execution/variables/:name/properties", srv.suggestProperties)
	app.Post("/v1/validate", srv.validate)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Executor handlers ---

type putVariableRequest struct {
	StepIndex        int             `json:"step_index"`
	Name             string          `json:"name"`
	Value            json.RawMessage `json:"value"`
	ExtractionQuery  string          `json:"extraction_query"`
	ExtractionSchema string          `json:"extraction_schema"`
}

func (s *Server) putVariable(c *fiber.Ctx) error {
	var req putVariableRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	if len(req.Value) == 0 {
		return badRequest(c, "value is required")
	}

	value, err := types.DecodeJSON(req.Value)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid value JSON: %v", err))
	}

	v, err := s.engine.OnStepOutput(engine.StepOutput{
		ExecutionID:      c.Params("execution"),
		StepIndex:        req.StepIndex,
		VariableName:     req.Name,
		Value:            value,
		ExtractionQuery:  req.ExtractionQuery,
		ExtractionSchema: req.ExtractionSchema,
	})
	if err != nil {
		var re *types.ReferenceError
		if errors.As(err, &re) && re.Kind == types.KindDuplicateStepBinding {
			return c.Status(409).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    409,
					"message": re.Message,
					"status":  "ALREADY_EXISTS",
				},
			})
		}
		return badRequest(c, err.Error())
	}

	encoded, _ := v.Value.MarshalJSON()
	return c.Status(200).JSON(fiber.Map{
		"name":              v.Name,
		"data_type":         v.DataType,
		"value":             json.RawMessage(encoded),
		"source_step_index": v.SourceStepIndex,
		"created_at":        v.CreatedAt.Format(time.RFC3339Nano),
		"schema_warnings":   v.SchemaWarnings,
	})
}

type resolveRequest struct {
	Params map[string]json.RawMessage `json:"params"`
}

func (s *Server) resolveParams(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}

	params := make(map[string]types.Value, len(req.Params))
	for k, raw := range req.Params {
		v, err := types.DecodeJSON(raw)
		if err != nil {
			return badRequest(c, fmt.Sprintf("invalid JSON for param %q: %v", k, err))
		}
		params[k] = v
	}

	resolved, warnings, err := s.engine.ResolveStepParameters(c.Params("execution"), params)
	if err != nil {
		var re *types.ReferenceError
		if errors.As(err, &re) {
			body, _ := re.ToValue().MarshalJSON()
			return c.Status(422).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    422,
					"message": re.Error(),
					"status":  "FAILED_PRECONDITION",
					"detail":  json.RawMessage(body),
				},
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    500,
				"message": err.Error(),
				"status":  "INTERNAL",
			},
		})
	}

	out := make(map[string]json.RawMessage, len(resolved))
	for k, v := range resolved {
		b, err := v.MarshalJSON()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    500,
					"message": err.Error(),
					"status":  "INTERNAL",
				},
			})
		}
		out[k] = b
	}

	warningList := make([]string, len(warnings))
	for i, w := range warnings {
		warningList[i] = w.Error()
	}

	return c.JSON(fiber.Map{
		"params":   out,
		"warnings": warningList,
	})
}

func (s *Server) completeStep(c *fiber.Ctx) error {
	s.engine.OnStepComplete(c.Params("execution"))
	return c.JSON(fiber.Map{"status": "completed"})
}

func (s *Server) terminateExecution(c *fiber.Ctx) error {
	s.engine.OnExecutionTerminal(c.Params("execution"))
	return c.JSON(fiber.Map{"status": "cleaned"})
}

// --- UI handlers ---

func (s *Server) listExecutions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"executions": s.engine.Store().Executions(),
	})
}

func (s *Server) listVariables(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"variables": s.engine.ListVariables(c.Params("execution")),
	})
}

func (s *Server) suggestVariables(c *fiber.Ctx) error {
	stepIndex := c.QueryInt("step_index", -1)
	items := s.engine.SuggestVariables(c.Params("execution"), c.Query("prefix"), stepIndex)
	return c.JSON(fiber.Map{"suggestions": items})
}

func (s *Server) suggestProperties(c *fiber.Ctx) error {
	items, err := s.engine.SuggestProperties(c.Params("execution"), c.Params("name"), c.Query("prefix"))
	if err != nil {
		var re *types.ReferenceError
		if errors.As(err, &re) && re.Kind == types.KindVariableNotFound {
			return c.Status(404).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    404,
					"message": re.Message,
					"status":  "NOT_FOUND",
				},
			})
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"properties": items})
}

type validateRequest struct {
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	ExecutionID string `json:"execution_id"`
	StepIndex   *int   `json:"step_index"`
}

func (s *Server) validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}

	stepIndex := -1
	if req.StepIndex != nil {
		stepIndex = *req.StepIndex
	}

	switch {
	case req.Reference != "":
		return c.JSON(s.engine.ValidateReference(req.Reference, req.ExecutionID, stepIndex))
	case req.Text != "":
		return c.JSON(s.engine.ValidateText(req.Text, req.ExecutionID, stepIndex))
	default:
		return badRequest(c, "either reference or text is required")
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    400,
			"message": msg,
			"status":  "INVALID_ARGUMENT",
		},
	})
}
