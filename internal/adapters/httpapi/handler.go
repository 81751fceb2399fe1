// Package httpapi exposes the model over HTTP: the validation report, the
// network snapshot, per-structure read-only field lists and asynchronous
// deck exports. Server adds /metrics and request tracing around it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"hydrocore/pkg/domain"
)

// Service is the subset of core.Service used by the handler.
type Service interface {
	Viewer
	Validate(ctx context.Context) (domain.ValidationReport, error)
}

// Handler provides HTTP access to a model.
type Handler struct {
	Service Service
	Exports ExportScheduler
}

// NewHandler constructs a handler; exports stay disabled until Exports is set.
func NewHandler(svc Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "model service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/report":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleReport(w, r)
	case path == "/api/v1/network":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleNetwork(w, r)
	case strings.HasPrefix(path, "/api/v1/structures/"):
		h.handleStructure(w, r, strings.TrimPrefix(path, "/api/v1/structures/"))
	case path == "/api/v1/export" || strings.HasPrefix(path, "/api/v1/exports/"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Validate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteText(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"errors":   report.ErrorCount(),
		"warnings": report.WarningCount(),
	})
}

type networkResponse struct {
	Settings      domain.Settings                 `json:"settings"`
	Nodes         []domain.Node                   `json:"nodes"`
	Branches      []domain.Branch                 `json:"branches"`
	Definitions   []domain.CrossSectionDefinition `json:"cross_section_definitions"`
	CrossSections []domain.CrossSection           `json:"cross_sections"`
	Composites    []domain.CompositeStructure     `json:"composites"`
	Structures    []domain.Structure              `json:"structures"`
	Manholes      []domain.Manhole                `json:"manholes"`
	Boundaries    []domain.BoundaryCondition      `json:"boundaries"`
	Laterals      []domain.LateralSource          `json:"laterals"`
	Breaches      []domain.LeveeBreach            `json:"breaches"`
}

func (h *Handler) handleNetwork(w http.ResponseWriter, r *http.Request) {
	var resp networkResponse
	err := h.Service.View(r.Context(), func(view domain.TransactionView) error {
		resp = networkResponse{
			Settings:      view.Settings(),
			Nodes:         view.ListNodes(),
			Branches:      view.ListBranches(),
			Definitions:   view.ListCrossSectionDefinitions(),
			CrossSections: view.ListCrossSections(),
			Composites:    view.ListComposites(),
			Structures:    view.ListStructures(),
			Manholes:      view.ListManholes(),
			Boundaries:    view.ListBoundaries(),
			Laterals:      view.ListLaterals(),
			Breaches:      view.ListBreaches(),
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type fieldsResponse struct {
	StructureID string               `json:"structure_id"`
	Kind        domain.StructureKind `json:"kind"`
	ReadOnly    []string             `json:"read_only"`
}

func (h *Handler) handleStructure(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] != "fields" {
		writeError(w, http.StatusNotFound, "structure endpoint not found")
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	var (
		structure domain.Structure
		found     bool
	)
	_ = h.Service.View(r.Context(), func(view domain.TransactionView) error {
		structure, found = view.FindStructure(segments[0])
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "structure not found")
		return
	}
	fields := domain.ReadOnlyFields(structure)
	if fields == nil {
		fields = []string{}
	}
	writeJSON(w, http.StatusOK, fieldsResponse{StructureID: structure.ID, Kind: structure.Kind, ReadOnly: fields})
}

type exportRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/export" {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid export request payload")
			return
		}
		record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{RequestedBy: req.RequestedBy, Reason: req.Reason})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrQueueFull) {
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(path, "/api/v1/exports/")
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
