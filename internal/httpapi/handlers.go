package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pnl_dashboard/config"
	"pnl_dashboard/formatting"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/rollups"
)

// settingsSections are the tables editable through /api/settings, in the
// order "all" returns them.
var settingsSections = []string{
	config.TablePricing,
	config.TableCompanyGoals,
	config.TableAgentGoals,
	config.TableCommission,
}

func isSettingsSection(name string) bool {
	for _, s := range settingsSections {
		if s == name {
			return true
		}
	}
	return false
}

// parseRange reads start/end query parameters. Any date shape the sheets use
// is accepted and normalized to ISO.
func parseRange(r *http.Request) (rollups.DateRange, error) {
	var out rollups.DateRange
	for _, p := range []struct {
		name string
		dst  *string
	}{{"start", &out.Start}, {"end", &out.End}} {
		raw := strings.TrimSpace(r.URL.Query().Get(p.name))
		if raw == "" {
			continue
		}
		iso, ok := formatting.ParseDate(raw)
		if !ok {
			return out, fmt.Errorf("invalid %s date %q", p.name, raw)
		}
		*p.dst = iso
	}
	if out.Start != "" && out.End != "" && out.Start > out.End {
		return out, fmt.Errorf("start %s is after end %s", out.Start, out.End)
	}
	return out, nil
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.deps.Rollups.Dashboard(r.Context(), rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	policies, err := h.deps.Rollups.Sales(r.Context(), rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": policies, "total": len(policies)})
}

func (h *Handler) callLogs(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	calls, err := h.deps.Rollups.Calls(r.Context(), rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": calls, "total": len(calls)})
}

func (h *Handler) commissions(w http.ResponseWriter, r *http.Request) {
	rates, err := h.deps.Rollups.Commissions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (h *Handler) goals(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.Goals.Load(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type sectionPayload struct {
	Headers []string     `json:"headers"`
	Rows    []sheets.Row `json:"rows"`
	Error   string       `json:"error,omitempty"`
}

func (h *Handler) readSection(r *http.Request, section string) (sectionPayload, error) {
	ref, _ := h.deps.Refs.Lookup(section)
	table, err := h.deps.Tables.ReadTable(r.Context(), ref)
	if err != nil {
		return sectionPayload{Headers: []string{}, Rows: []sheets.Row{}}, err
	}
	return sectionPayload{Headers: table.Headers, Rows: table.Rows}, nil
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "all" {
		out := make(map[string]sectionPayload, len(settingsSections))
		for _, s := range settingsSections {
			payload, err := h.readSection(r, s)
			if err != nil {
				h.log.WithError(err).WithField("section", s).Warn("settings section unavailable")
				payload.Error = err.Error()
			}
			out[s] = payload
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	if !isSettingsSection(section) {
		writeError(w, r, http.StatusBadRequest, "unknown section: "+section)
		return
	}
	payload, err := h.readSection(r, section)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type settingsRequest struct {
	Section   string         `json:"section"`
	Action    string         `json:"action"`
	RowData   map[string]any `json:"rowData"`
	RowNumber int            `json:"rowNumber"`
}

func (h *Handler) postSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if !isSettingsSection(req.Section) {
		writeError(w, r, http.StatusBadRequest, "unknown section: "+req.Section)
		return
	}
	ref, _ := h.deps.Refs.Lookup(req.Section)
	values := stringValues(req.RowData)
	ctx := r.Context()

	var (
		err  error
		done string
	)
	switch req.Action {
	case "add":
		done = "added"
		err = h.deps.Tables.AppendRow(ctx, ref, values)
	case "update", "delete":
		if req.RowNumber < 1 {
			writeError(w, r, http.StatusBadRequest, "rowNumber required for "+req.Action)
			return
		}
		if req.Action == "update" {
			done = "updated"
			err = h.deps.Tables.UpdateRow(ctx, ref, req.RowNumber, values)
		} else {
			done = "deleted"
			err = h.deps.Tables.DeleteRow(ctx, ref, req.RowNumber)
		}
	default:
		writeError(w, r, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "action": done})
}

// stringValues flattens JSON row data into cell text.
func stringValues(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	if h.deps.Queue != nil && !h.deps.Queue.Healthy() {
		writeError(w, r, http.StatusServiceUnavailable, "worker queue not running")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"backend": h.deps.Backend,
		"metrics": h.deps.Metrics.Snapshot(),
	}
	if h.deps.Queue != nil {
		payload["queue"] = h.deps.Queue.Stats()
	}
	writeJSON(w, http.StatusOK, payload)
}

// invalidate drops cached tables: the one named by ?table=, or all of them.
func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	names := h.deps.Refs.Names()
	if name := r.URL.Query().Get("table"); name != "" {
		if _, ok := h.deps.Refs.Lookup(name); !ok {
			writeError(w, r, http.StatusBadRequest, "unknown table: "+name)
			return
		}
		names = []string{name}
	}
	invalidated := make([]string, 0, len(names))
	for _, name := range names {
		ref, _ := h.deps.Refs.Lookup(name)
		if err := h.deps.Tables.Invalidate(r.Context(), ref); err != nil {
			h.fail(w, r, err)
			return
		}
		invalidated = append(invalidated, ref.Key())
	}
	h.log.WithField("tables", invalidated).Info("cache invalidated")
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": invalidated})
}
