package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-weather-service/internal/models"
	"github.com/kjstillabower/trip-weather-service/internal/observability"
)

//go:embed templates/trip.html
var templateFS embed.FS

var tripPage = template.Must(template.ParseFS(templateFS, "templates/trip.html"))

// datetimeLocalLayout matches the value format of <input type="datetime-local">.
const datetimeLocalLayout = "2006-01-02T15:04"

type formPage struct {
	Origin      string
	Destination string
	Start       string
	Timezone    string
	Error       string
	Trip        *models.Trip
}

// GetForm handles GET /. The start field defaults to now in the trip timezone.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPage{
		Start: h.now().In(h.location).Format(datetimeLocalLayout),
	})
}

// PostForm handles POST / from the form page and renders the stops and summary.
func (h *Handler) PostForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, formPage{Error: "Could not read the form."})
		return
	}
	page := formPage{
		Origin:      r.PostForm.Get("origin"),
		Destination: r.PostForm.Get("destination"),
		Start:       r.PostForm.Get("start"),
	}

	req, err := h.parseTripInput(tripInput{
		Origin:      page.Origin,
		Destination: page.Destination,
		Start:       page.Start,
		Summarize:   true,
	})
	if err != nil {
		var ie *inputError
		if errors.As(err, &ie) {
			page.Error = ie.message
		} else {
			page.Error = err.Error()
		}
		h.renderForm(w, r, http.StatusBadRequest, page)
		return
	}

	trip, err := h.planTrip(r.Context(), req)
	if err != nil {
		status, _, message := serviceErrorStatus(err)
		observability.LoggerFromContext(r.Context()).Warn("trip failed", zap.Int("status", status), zap.Error(err))
		page.Error = message
		h.renderForm(w, r, status, page)
		return
	}
	page.Trip = &trip
	h.renderForm(w, r, http.StatusOK, page)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, page formPage) {
	page.Timezone = h.location.String()
	var buf bytes.Buffer
	if err := tripPage.Execute(&buf, page); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render form", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
