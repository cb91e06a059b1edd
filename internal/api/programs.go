package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// maxProgramSteps bounds a program submitted over HTTP.
const maxProgramSteps = 256

// ProgramStep is one message of a submitted program.
type ProgramStep struct {
	Target string `json:"target"`
	CommandRequest
}

// ProgramRequest is the body of POST /api/v1/programs.
//
//	{"steps": [{"target": "dev-...", "kind": "switch_on"}, ...]}
type ProgramRequest struct {
	Steps []ProgramStep `json:"steps"`
}

// ProgramResponse reports a finished program run.
type ProgramResponse struct {
	ExecutionID string `json:"execution_id"`
	Steps       int    `json:"steps"`
	Completed   int    `json:"completed"`
	OK          bool   `json:"ok"`
	FailedIndex *int   `json:"failed_index,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (req ProgramRequest) program() (iot.Program, error) {
	if len(req.Steps) > maxProgramSteps {
		return nil, fmt.Errorf("program has %d steps, maximum is %d", len(req.Steps), maxProgramSteps)
	}

	program := make(iot.Program, 0, len(req.Steps))
	for i, step := range req.Steps {
		if step.Target == "" {
			return nil, fmt.Errorf("step %d: target is required", i)
		}
		msg, err := step.message(iot.DeviceID(step.Target))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		program = append(program, msg)
	}
	return program, nil
}

// handleRunProgram runs a program to completion and reports its outcome.
//
// A program that stops at a failing step answers with the status for that
// step's error kind; the body still carries the execution ID and how many
// steps completed. An empty program succeeds immediately.
func (s *Server) handleRunProgram(w http.ResponseWriter, r *http.Request) {
	var req ProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	program, err := req.program()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	execID, runErr := s.service.RunProgram(r.Context(), program)

	resp := ProgramResponse{
		ExecutionID: execID,
		Steps:       len(program),
		Completed:   len(program),
		OK:          runErr == nil,
	}
	if runErr == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.ErrorKind = iot.ErrorKind(runErr)
	resp.Error = runErr.Error()
	var perr *iot.ProgramError
	if errors.As(runErr, &perr) {
		idx := perr.Index
		resp.FailedIndex = &idx
		resp.Completed = idx
	}
	writeJSON(w, statusForError(runErr), resp)
}
