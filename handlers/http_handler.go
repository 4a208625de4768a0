// Package handlers provides HTTP request handlers for the medication safety API.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/medsafe-api/data"
	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/giygas/medsafe-api/inventory"
	"github.com/giygas/medsafe-api/logging"
	"github.com/giygas/medsafe-api/matcher"
	"github.com/giygas/medsafe-api/metrics"
	"github.com/giygas/medsafe-api/risk"
	"github.com/go-chi/chi/v5"
)

const (
	maxVerdictDrugs   = 50
	maxProfileEntries = 100
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.CatalogStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	cabinet       *inventory.Service
	concurrency   int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// concurrency bounds the parallel evaluations of one verdict request.
func NewHTTPHandler(dataStore interfaces.CatalogStore, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker, cabinet *inventory.Service, concurrency int) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		cabinet:       cabinet,
		concurrency:   concurrency,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime,omitempty"`
	Data   map[string]any `json:"data"`
}

type scanRequest struct {
	Text string `json:"text"`
}

type verdictRequest struct {
	DrugIDs    []string `json:"drugIds"`
	Allergies  []string `json:"allergies"`
	Conditions []string `json:"conditions"`
}

type addMedicineRequest struct {
	DrugID        string   `json:"drugId"`
	TabletCount   int      `json:"tabletCount"`
	ExpiryDate    string   `json:"expiryDate"`
	ScheduleTimes []string `json:"scheduleTimes"`
}

type doseRequest struct {
	ScheduledTime string `json:"scheduledTime"`
}

type restockRequest struct {
	Tablets    int    `json:"tablets"`
	ExpiryDate string `json:"expiryDate"`
}

type cabinetStatusResponse struct {
	Status        inventory.CabinetStatus  `json:"status"`
	PendingAlerts []entities.OwnedMedicine `json:"pendingAlerts"`
}

// SearchDrugs matches a typed query against drug names
func (h *HTTPHandlerImpl) SearchDrugs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	// A blank query matches nothing
	if strings.TrimSpace(query) == "" {
		RespondWithJSON(w, http.StatusOK, []entities.Drug{})
		return
	}

	if err := h.validator.ValidateInput(query); err != nil {
		logging.Warn("Unusual user input", "q", query, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := matcher.New(h.dataStore.GetCatalog()).SearchByQuery(query)
	metrics.DrugMatchesTotal.WithLabelValues("search").Add(float64(len(results)))

	// Always return 200 with results array (empty if no matches)
	RespondWithJSON(w, http.StatusOK, results)
}

// GetDrug returns one catalog record
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateID(id); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug, ok := h.dataStore.GetCatalog().ByID(id)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, drug)
}

// ScanText finds the catalog drugs named in recognized label text
func (h *HTTPHandlerImpl) ScanText(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSONBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.ValidateScanText(req.Text); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := matcher.New(h.dataStore.GetCatalog()).FindInText(req.Text)
	metrics.DrugMatchesTotal.WithLabelValues("scan").Add(float64(len(results)))

	RespondWithJSON(w, http.StatusOK, results)
}

// EvaluateVerdicts evaluates drugs taken together against a profile. The
// verdicts come back most severe first.
func (h *HTTPHandlerImpl) EvaluateVerdicts(w http.ResponseWriter, r *http.Request) {
	var req verdictRequest
	if err := decodeJSONBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.DrugIDs) > maxVerdictDrugs {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("at most %d drugs per request", maxVerdictDrugs))
		return
	}
	if len(req.Allergies) > maxProfileEntries || len(req.Conditions) > maxProfileEntries {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("at most %d allergies and %d conditions", maxProfileEntries, maxProfileEntries))
		return
	}

	cat := h.dataStore.GetCatalog()
	drugs := make([]entities.Drug, 0, len(req.DrugIDs))
	var unknown []string
	for _, id := range req.DrugIDs {
		if err := h.validator.ValidateID(id); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		drug, ok := cat.ByID(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		drugs = append(drugs, drug)
	}
	if len(unknown) > 0 {
		RespondWithError(w, http.StatusNotFound, "Unknown drug ids: "+strings.Join(unknown, ", "))
		return
	}

	profile := entities.Profile{Allergies: req.Allergies, Conditions: req.Conditions}
	verdicts := risk.NewAggregator(risk.NewEvaluator(cat), h.concurrency).Aggregate(drugs, profile)
	for _, v := range verdicts {
		metrics.VerdictsTotal.WithLabelValues(v.RiskLevel.String()).Inc()
	}

	RespondWithJSON(w, http.StatusOK, verdicts)
}

// userParam returns the validated user id, writing the error response itself
// when it is invalid
func (h *HTTPHandlerImpl) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if err := h.validator.ValidateID(userID); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid user id")
		return "", false
	}
	return userID, true
}

func (h *HTTPHandlerImpl) medicineParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := h.userParam(w, r)
	if !ok {
		return "", "", false
	}
	medicineID := chi.URLParam(r, "medicineID")
	if err := h.validator.ValidateID(medicineID); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid medicine id")
		return "", "", false
	}
	return userID, medicineID, true
}

// respondCabinetError maps store and service errors to status codes
func respondCabinetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, data.ErrMedicineNotFound):
		RespondWithError(w, http.StatusNotFound, "Medicine not found")
	case errors.Is(err, inventory.ErrUnknownDrug):
		RespondWithError(w, http.StatusNotFound, "Drug not found")
	case errors.Is(err, data.ErrMedicineExists):
		RespondWithError(w, http.StatusConflict, err.Error())
	default:
		RespondWithError(w, http.StatusBadRequest, err.Error())
	}
}

// ListCabinet returns the user's medicines with their derived states
func (h *HTTPHandlerImpl) ListCabinet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userParam(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, h.cabinet.View(userID))
}

// CabinetStatus returns the cabinet summary and the alerts to show now
func (h *HTTPHandlerImpl) CabinetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userParam(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, cabinetStatusResponse{
		Status:        h.cabinet.Status(userID),
		PendingAlerts: h.cabinet.PendingAlerts(userID),
	})
}

// AddMedicine adds a catalog drug to the user's cabinet
func (h *HTTPHandlerImpl) AddMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userParam(w, r)
	if !ok {
		return
	}

	var req addMedicineRequest
	if err := decodeJSONBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.ValidateID(req.DrugID); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid drug id")
		return
	}
	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.cabinet.AddFromCatalog(userID, req.DrugID, inventory.AddParams{
		ExpiryDate:    expiry,
		TabletCount:   req.TabletCount,
		ScheduleTimes: req.ScheduleTimes,
	})
	if err != nil {
		respondCabinetError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, item)
}

// RemoveMedicine deletes one medicine from the user's cabinet
func (h *HTTPHandlerImpl) RemoveMedicine(w http.ResponseWriter, r *http.Request) {
	userID, medicineID, ok := h.medicineParams(w, r)
	if !ok {
		return
	}
	if err := h.cabinet.Remove(userID, medicineID); err != nil {
		respondCabinetError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogDose records one tablet taken. A refused dose answers 409 with the
// reason: expired, out_of_stock or locked.
func (h *HTTPHandlerImpl) LogDose(w http.ResponseWriter, r *http.Request) {
	userID, medicineID, ok := h.medicineParams(w, r)
	if !ok {
		return
	}

	var req doseRequest
	if err := decodeJSONBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ScheduledTime) == "" {
		RespondWithError(w, http.StatusBadRequest, "scheduledTime is required")
		return
	}

	res, err := h.cabinet.LogDose(userID, medicineID, req.ScheduledTime)
	var blocked *inventory.DoseBlockedError
	switch {
	case errors.As(err, &blocked):
		metrics.DoseLogAttemptsTotal.WithLabelValues(blocked.Reason.String()).Inc()
		body := errorBody(http.StatusConflict, blocked.Error())
		body["reason"] = blocked.Reason
		body["window"] = res.Decision.Window
		RespondWithJSON(w, http.StatusConflict, body)
	case err != nil:
		metrics.DoseLogAttemptsTotal.WithLabelValues("error").Inc()
		respondCabinetError(w, err)
	default:
		metrics.DoseLogAttemptsTotal.WithLabelValues("logged").Inc()
		RespondWithJSON(w, http.StatusOK, res)
	}
}

// Restock adds tablets and optionally a new expiry date
func (h *HTTPHandlerImpl) Restock(w http.ResponseWriter, r *http.Request) {
	userID, medicineID, ok := h.medicineParams(w, r)
	if !ok {
		return
	}

	var req restockRequest
	if err := decodeJSONBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.cabinet.Restock(userID, medicineID, req.Tablets, expiry)
	if err != nil {
		respondCabinetError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, item)
}

// DismissExpiryAlert records that the expired-medicine modal was shown
func (h *HTTPHandlerImpl) DismissExpiryAlert(w http.ResponseWriter, r *http.Request) {
	userID, medicineID, ok := h.medicineParams(w, r)
	if !ok {
		return
	}
	if err := h.cabinet.DismissExpiryAlert(userID, medicineID); err != nil {
		respondCabinetError(w, err)
		return
	}

	item, err := h.cabinet.Item(userID, medicineID)
	if err != nil {
		respondCabinetError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, item)
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{Status: status, Data: details}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		response.Uptime = formatUptimeHuman(time.Since(start))
	}

	RespondWithJSON(w, httpStatus, response)
}
