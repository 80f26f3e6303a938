package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	mW "github.com/ruralpay/pointsledger/internal/middleware"
	"github.com/ruralpay/pointsledger/internal/models"
	"github.com/ruralpay/pointsledger/internal/services"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client-chosen key for mutating commands.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxBodyBytes = 1_048_576

var errTrailingData = errors.New("request body must only contain a single JSON object")

type PointsHandler struct {
	service services.PointsPort
	logger  *zap.Logger
}

func NewPointsHandler(service services.PointsPort, logger *zap.Logger) *PointsHandler {
	return &PointsHandler{
		service: service,
		logger:  logger.Named("http"),
	}
}

// Routes mounts the points API; the caller applies authentication.
func (h *PointsHandler) Routes(r chi.Router) {
	r.Post("/credit", h.Credit)
	r.Post("/debit", h.Debit)
	r.Post("/holds", h.Hold)
	r.Post("/holds/commit", h.CommitHold)
	r.Post("/holds/release", h.ReleaseHold)
	r.Post("/holds/expire", h.ExpireHold)
	r.Get("/holds/expired", h.ListExpiredHolds)
	r.Post("/reversals", h.Reverse)
	r.Get("/accounts/{ownerType}/{ownerId}/balance", h.GetBalance)
	r.Get("/accounts/{ownerType}/{ownerId}/statement", h.ListStatement)
}

// Credit adds points to an owner's balance
// @Summary Credit points
// @Tags Points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.PointsCommand true "Credit request"
// @Success 201 {object} models.PointsResult
// @Success 200 {object} models.PointsResult "Replayed"
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /points/credit [post]
func (h *PointsHandler) Credit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var cmd services.PointsCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.TenantID = tenantID
	cmd.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := h.service.Credit(r.Context(), cmd)
	h.respond(w, "credit", result, err)
}

// Debit removes points from an owner's available balance
// @Summary Debit points
// @Tags Points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.PointsCommand true "Debit request"
// @Success 201 {object} models.PointsResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /points/debit [post]
func (h *PointsHandler) Debit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var cmd services.PointsCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.TenantID = tenantID
	cmd.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := h.service.Debit(r.Context(), cmd)
	h.respond(w, "debit", result, err)
}

// Hold reserves points against a reference
// @Summary Place hold
// @Tags Holds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.HoldCommand true "Hold request"
// @Success 201 {object} models.PointsResult
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /points/holds [post]
func (h *PointsHandler) Hold(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var cmd services.HoldCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.TenantID = tenantID
	cmd.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := h.service.Hold(r.Context(), cmd)
	h.respond(w, "hold", result, err)
}

// CommitHold consumes the active hold of a reference
// @Summary Commit hold
// @Tags Holds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.HoldResolutionCommand true "Hold reference"
// @Success 201 {object} models.PointsResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /points/holds/commit [post]
func (h *PointsHandler) CommitHold(w http.ResponseWriter, r *http.Request) {
	h.resolveHold(w, r, "commit", h.service.CommitHold)
}

// ReleaseHold returns the active hold of a reference to the available balance
// @Summary Release hold
// @Tags Holds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.HoldResolutionCommand true "Hold reference"
// @Success 201 {object} models.PointsResult
// @Failure 404 {object} services.ErrorResponse
// @Router /points/holds/release [post]
func (h *PointsHandler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	h.resolveHold(w, r, "release", h.service.ReleaseHold)
}

// ExpireHold expires an active hold past its expiry
// @Summary Expire hold
// @Tags Holds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.HoldResolutionCommand true "Hold reference"
// @Success 201 {object} models.PointsResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /points/holds/expire [post]
func (h *PointsHandler) ExpireHold(w http.ResponseWriter, r *http.Request) {
	h.resolveHold(w, r, "expire", h.service.ExpireHold)
}

func (h *PointsHandler) resolveHold(w http.ResponseWriter, r *http.Request, command string,
	resolve func(ctx context.Context, cmd services.HoldResolutionCommand) (*models.PointsResult, error)) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var cmd services.HoldResolutionCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.TenantID = tenantID
	cmd.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := resolve(r.Context(), cmd)
	h.respond(w, command, result, err)
}

// Reverse offsets a DEBIT or COMMIT entry
// @Summary Reverse entry
// @Tags Points
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body services.ReverseCommand true "Reversal request"
// @Success 201 {object} models.PointsResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /points/reversals [post]
func (h *PointsHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var cmd services.ReverseCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.TenantID = tenantID
	cmd.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	result, err := h.service.Reverse(r.Context(), cmd)
	h.respond(w, "reverse", result, err)
}

// GetBalance returns an owner's current, held and available points
// @Summary Get balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param ownerType path string true "Owner type"
// @Param ownerId path string true "Owner ID"
// @Success 200 {object} models.Balance
// @Router /points/accounts/{ownerType}/{ownerId}/balance [get]
func (h *PointsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), tenantID, chi.URLParam(r, "ownerType"), chi.URLParam(r, "ownerId"))
	if err != nil {
		h.fail(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// ListStatement returns a page of an owner's ledger entries
// @Summary List statement
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param ownerType path string true "Owner type"
// @Param ownerId path string true "Owner ID"
// @Param entryType query string false "Comma separated entry types"
// @Param referenceType query string false "Reference type"
// @Param referenceId query string false "Reference ID"
// @Param from query string false "Inclusive lower bound (RFC3339)"
// @Param to query string false "Exclusive upper bound (RFC3339)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.StatementPage
// @Failure 400 {object} services.ErrorResponse
// @Router /points/accounts/{ownerType}/{ownerId}/statement [get]
func (h *PointsHandler) ListStatement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err1 := optionalInt(q.Get("page"))
	pageSize, err2 := optionalInt(q.Get("pageSize"))
	from, err3 := optionalTime(q.Get("from"))
	to, err4 := optionalTime(q.Get("to"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		services.SendErrorResponse(w, "Invalid query parameters", http.StatusBadRequest, nil)
		return
	}

	var entryTypes []string
	for _, v := range q["entryType"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				entryTypes = append(entryTypes, strings.ToUpper(t))
			}
		}
	}

	statement, err := h.service.ListStatement(r.Context(), services.StatementQuery{
		TenantID:  tenantID,
		OwnerType: chi.URLParam(r, "ownerType"),
		OwnerID:   chi.URLParam(r, "ownerId"),
		Page:      page,
		PageSize:  pageSize,
		Filter: services.StatementFilterInput{
			EntryTypes:    entryTypes,
			ReferenceType: q.Get("referenceType"),
			ReferenceID:   q.Get("referenceId"),
			From:          from,
			To:            to,
		},
	})
	if err != nil {
		h.fail(w, "statement", err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}

// ListExpiredHolds lists active holds past expiry for the reaper
// @Summary List expired holds
// @Tags Holds
// @Produce json
// @Security BearerAuth
// @Param before query string false "Cutoff (RFC3339), defaults to now"
// @Param limit query int false "Maximum holds returned"
// @Success 200 {array} models.Hold
// @Router /points/holds/expired [get]
func (h *PointsHandler) ListExpiredHolds(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	before, err1 := optionalTime(r.URL.Query().Get("before"))
	limit, err2 := optionalInt(r.URL.Query().Get("limit"))
	if err := errors.Join(err1, err2); err != nil {
		services.SendErrorResponse(w, "Invalid query parameters", http.StatusBadRequest, nil)
		return
	}

	cutoff := time.Now().UTC()
	if before != nil {
		cutoff = *before
	}

	holds, err := h.service.ListExpiredHolds(r.Context(), tenantID, cutoff, limit)
	if err != nil {
		h.fail(w, "expired_holds", err)
		return
	}
	writeJSON(w, http.StatusOK, holds)
}

func (h *PointsHandler) tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := mW.TenantFromContext(r.Context())
	if !ok {
		h.logger.Warn("request without tenant", zap.String("path", r.URL.Path))
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return "", false
	}
	return tenantID, true
}

func (h *PointsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		h.logger.Debug("decode error", zap.String("path", r.URL.Path), zap.Error(err))
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, errTrailingData.Error(), http.StatusBadRequest, nil)
		return false
	}
	return true
}

// respond writes 201 for an applied command and 200 for a replayed one.
func (h *PointsHandler) respond(w http.ResponseWriter, command string, result *models.PointsResult, err error) {
	if err != nil {
		h.fail(w, command, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (h *PointsHandler) fail(w http.ResponseWriter, command string, err error) {
	if services.HTTPStatus(err) == http.StatusInternalServerError {
		h.logger.Error("points request failed", zap.String("command", command), zap.Error(err))
	}
	services.SendDomainError(w, err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
