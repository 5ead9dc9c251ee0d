package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loblawbio/trialstats/breakdown"
	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/compare"
	"github.com/loblawbio/trialstats/db"
)

type handler struct {
	*Global
	router *mux.Router
}

// Frequencies serves the full derived-frequency table, or a cohort-restricted
// one when filter attributes are supplied as query parameters, e.g.
// /api/frequencies?condition=melanoma&sample_type=PBMC.
func (h *handler) Frequencies(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.frequenciesFor(w, f)
}

// StatisticalFrequencies serves the frequency table restricted to the
// canonical statistical cohort.
func (h *handler) StatisticalFrequencies(w http.ResponseWriter, r *http.Request) {
	h.frequenciesFor(w, cohort.Statistical())
}

func (h *handler) frequenciesFor(w http.ResponseWriter, f cohort.Filter) {
	rows, integrity, err := h.db.FrequencyTableFor(f)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.reply(w, struct {
		Rows     []db.FrequencyRow `json:"rows"`
		Problems []string          `json:"problems,omitempty"`
	}{rows, integrityMessages(integrity)})
}

// Comparison serves the responder vs non-responder statistical results over
// the statistical cohort.
func (h *handler) Comparison(w http.ResponseWriter, r *http.Request) {
	freq, integrity, err := h.db.CohortFrequencyTable(cohort.Statistical())
	if err != nil {
		h.fail(w, err)
		return
	}

	type apiRow struct {
		compare.Row
		Error string `json:"error,omitempty"`
	}

	results := compare.Responders(freq)
	rows := make([]apiRow, 0, len(results))
	for _, row := range results {
		out := apiRow{Row: row}
		if row.Err != nil {
			out.Error = row.Err.Error()
		}
		rows = append(rows, out)
	}

	h.reply(w, struct {
		Rows     []apiRow `json:"rows"`
		Problems []string `json:"problems,omitempty"`
	}{rows, integrityMessages(integrity)})
}

// Baseline serves the baseline cohort's sample rows.
func (h *handler) Baseline(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.SampleRows(cohort.Baseline())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.reply(w, rows)
}

func (h *handler) BaselineProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := breakdown.SamplesPerProject(h.db, cohort.Baseline())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.reply(w, rows)
}

func (h *handler) BaselineResponses(w http.ResponseWriter, r *http.Request) {
	rows, err := breakdown.SubjectsByResponse(h.db, cohort.Baseline())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.reply(w, rows)
}

func (h *handler) BaselineSexes(w http.ResponseWriter, r *http.Request) {
	rows, err := breakdown.SubjectsBySex(h.db, cohort.Baseline())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.reply(w, rows)
}

func (h *handler) reply(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Println(err)
	}
}

// fail distinguishes a misconfigured query (the caller's fault) from a store
// failure.
func (h *handler) fail(w http.ResponseWriter, err error) {
	h.log.Println(err)

	var confErr cohort.ConfigurationError
	if errors.As(err, &confErr) {
		http.Error(w, confErr.Error(), http.StatusBadRequest)
		return
	}

	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func filterFromQuery(r *http.Request) (cohort.Filter, error) {
	var f cohort.Filter

	for name, values := range r.URL.Query() {
		if err := f.ParseField(name, values); err != nil {
			return f, err
		}
	}

	return f, nil
}

func integrityMessages(integrity []db.IntegrityError) []string {
	if len(integrity) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(integrity))
	for _, bad := range integrity {
		msgs = append(msgs, bad.Error())
	}

	return msgs
}
