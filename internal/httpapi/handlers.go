package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"petit-panthere/pkg/panthere"

	"github.com/shopspring/decimal"
)

const (
	chatPageFile = "chat.html"
	iconFile     = "icon.png"

	maxListedFiles = 20
	moneyPlaces    = 4
)

var diagnosticPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Petit Panthère</title></head>
<body>
<h1>🐾 Petit Panthère is Running!</h1>
<p>Server started successfully but chat.html not found in deployment.</p>
<p>Current directory: {{.Dir}}</p>
<p>Files: {{range $i, $f := .Files}}{{if $i}}, {{end}}{{$f}}{{end}}</p>
<p><a href="/health">Health Check</a></p>
</body>
</html>
`))

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type clearRequest struct {
	SessionID string `json:"session_id"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ledgerResponse struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

type budgetErrorResponse struct {
	Error      string         `json:"error"`
	TokenUsage ledgerResponse `json:"token_usage"`
}

type tokenUsageResponse struct {
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	MessageCost     float64 `json:"message_cost"`
	TotalInput      int64   `json:"total_input"`
	TotalOutput     int64   `json:"total_output"`
	TotalCost       float64 `json:"total_cost"`
	BudgetLimit     float64 `json:"budget_limit"`
	BudgetRemaining float64 `json:"budget_remaining"`
}

type chatResponse struct {
	Response    string             `json:"response"`
	SessionID   string             `json:"session_id"`
	TokenUsage  tokenUsageResponse `json:"token_usage"`
	MemorySaved string             `json:"memory_saved,omitempty"`
}

type clearResponse struct {
	Status string `json:"status"`
}

type usageResponse struct {
	TokenUsage      ledgerResponse `json:"token_usage"`
	BudgetLimit     float64        `json:"budget_limit"`
	BudgetRemaining float64        `json:"budget_remaining"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: ServiceName})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := filepath.Join(s.staticDir, chatPageFile)
	if info, err := os.Stat(page); err == nil && !info.IsDir() {
		http.ServeFile(w, r, page)
		return
	}

	dir, err := filepath.Abs(s.staticDir)
	if err != nil {
		dir = s.staticDir
	}
	files := make([]string, 0, maxListedFiles)
	entries, err := os.ReadDir(s.staticDir)
	if err != nil {
		s.logger.Warn("list static dir failed", "dir", s.staticDir, "error", err)
	}
	for _, entry := range entries {
		if len(files) == maxListedFiles {
			break
		}
		files = append(files, entry.Name())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := diagnosticPage.Execute(w, struct {
		Dir   string
		Files []string
	}{Dir: dir, Files: files}); err != nil {
		s.logger.Error("render index page failed", "error", err)
	}
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.staticDir, iconFile))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	reply, err := s.relay.Send(r.Context(), req.Message, panthere.RelayContext{SessionID: req.SessionID})
	if err != nil {
		s.writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:    reply.Text,
		SessionID:   reply.SessionID,
		TokenUsage:  tokenUsage(reply),
		MemorySaved: reply.LastMemorySaved(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if err := s.relay.Clear(r.Context(), req.SessionID); err != nil {
		s.logger.Error("clear session failed", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Error: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{Status: "cleared"})
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	status := s.relay.Usage()
	writeJSON(w, http.StatusOK, usageResponse{
		TokenUsage:      ledger(status.Ledger),
		BudgetLimit:     status.Limit.InexactFloat64(),
		BudgetRemaining: money(status.Remaining()),
	})
}

func (s *Server) writeRelayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, panthere.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No message provided"})
	case errors.Is(err, panthere.ErrProviderUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Model API key not configured"})
	case errors.Is(err, panthere.ErrBudgetExceeded):
		status := s.relay.Usage()
		writeJSON(w, http.StatusTooManyRequests, budgetErrorResponse{
			Error: fmt.Sprintf(
				"Budget limit reached ($%s). Reset the server to continue.",
				status.Limit.StringFixed(2),
			),
			TokenUsage: ledger(status.Ledger),
		})
	default:
		s.logger.Error("chat relay failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Error: %v", err)})
	}
}

func tokenUsage(reply panthere.Reply) tokenUsageResponse {
	return tokenUsageResponse{
		InputTokens:     reply.Charge.InputTokens,
		OutputTokens:    reply.Charge.OutputTokens,
		MessageCost:     money(reply.Charge.Cost),
		TotalInput:      reply.Budget.Ledger.InputTokens,
		TotalOutput:     reply.Budget.Ledger.OutputTokens,
		TotalCost:       money(reply.Budget.Ledger.TotalCost),
		BudgetLimit:     reply.Budget.Limit.InexactFloat64(),
		BudgetRemaining: money(reply.Budget.Remaining()),
	}
}

func ledger(l panthere.UsageLedger) ledgerResponse {
	return ledgerResponse{
		InputTokens:  l.InputTokens,
		OutputTokens: l.OutputTokens,
		TotalCost:    l.TotalCost.InexactFloat64(),
	}
}

func money(value decimal.Decimal) float64 {
	return value.Round(moneyPlaces).InexactFloat64()
}

// decodeJSONBody decodes an optional JSON body. An empty body leaves dst untouched.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
