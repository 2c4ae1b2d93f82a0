package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// apiStatus is the envelope the admin API answers with. It always travels
// with HTTP 200.
type apiStatus struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

var (
	statusSuccess = apiStatus{Status: "success"}
	statusFail    = apiStatus{Status: "fail"}
)

type createTaskRequest struct {
	PSID string `json:"psid"`
	Task string `json:"task"`
}

// handleTaskCreate adds a task on behalf of a sender.
func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Debug("Invalid create task body", slog.Any("error", err))
	}
	if req.PSID == "" || req.Task == "" {
		writeJSON(w, apiStatus{Status: "fail", Msg: "All fields are required"})
		return
	}

	task, err := s.tasks.Create(r.Context(), req.PSID, req.Task)
	if err != nil {
		s.log.Error("Failed to create task", slog.Any("error", err))
		writeJSON(w, statusFail)
		return
	}

	s.log.Info("Task created via admin API", slog.String("task_id", task.ID), slog.String("sender_psid", req.PSID))
	writeJSON(w, statusSuccess)
}

// handleTaskAll lists every task.
func (s *Server) handleTaskAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tasks, err := s.tasks.ListAll(r.Context())
	if err != nil {
		s.log.Error("Failed to list tasks", slog.Any("error", err))
		writeJSON(w, statusFail)
		return
	}
	writeJSON(w, tasks)
}

// handleTaskGet lists one sender's tasks.
func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	psid := r.URL.Query().Get("psid")
	if psid == "" {
		writeJSON(w, apiStatus{Status: "fail", Msg: "PSID is required."})
		return
	}

	tasks, err := s.tasks.ListBySender(r.Context(), psid)
	if err != nil {
		s.log.Error("Failed to list tasks", slog.String("sender_psid", psid), slog.Any("error", err))
		writeJSON(w, statusFail)
		return
	}
	writeJSON(w, tasks)
}
