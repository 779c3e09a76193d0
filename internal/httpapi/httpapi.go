package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"salesjournal/internal/domain"
	"salesjournal/internal/logger"
	"salesjournal/internal/period"
	"salesjournal/internal/report"
	"salesjournal/internal/service"
)

const (
	confirmHeader = "X-Confirm-Token"
	maxBodyBytes  = 1 << 20
)

type API struct {
	service       *service.Service
	confirm       *Confirmations
	allowedOrigin string
	backend       string
	log           *logger.Logger
}

type Options struct {
	AllowedOrigin string
	// Backend is reported by /healthz.
	Backend string
	Logger  *logger.Logger
}

func New(svc *service.Service, confirm *Confirmations, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if strings.TrimSpace(opts.AllowedOrigin) == "" {
		opts.AllowedOrigin = "*"
	}
	return &API{
		service:       svc,
		confirm:       confirm,
		allowedOrigin: opts.AllowedOrigin,
		backend:       opts.Backend,
		log:           opts.Logger.WithComponent("httpapi"),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(a.requestID)
	r.Use(a.accessLog)
	r.Use(a.recoverer)
	r.Use(securityHeaders)
	r.Use(a.corsHandler())
	r.Use(limitBody(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", a.handleListProducts)
		r.Post("/products/custom", a.handleCustomItem)
		r.Get("/products/{name}", a.handleFindProduct)

		r.Post("/sales", a.handleRecordSale)
		r.Get("/sales/preview", a.handlePreview)

		r.Get("/transactions", a.handleListTransactions)
		r.Delete("/transactions", a.handleClearTransactions)
		r.Post("/transactions/clear/confirmation", a.handleClearConfirmation)
		r.Delete("/transactions/{id}", a.handleDeleteTransaction)

		r.Get("/periods/resolve", a.handleResolvePeriod)
		r.Get("/reports/summary", a.handleSummary)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"backend": a.backend,
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": a.service.ListProducts(r.Context())})
}

func (a *API) handleFindProduct(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.FindProduct(r.Context(), name)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": domain.ProductListing{Product: product, Available: product.Available()},
	})
}

func (a *API) handleCustomItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}

	product, err := a.service.RecordCustomItem(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}

	tx, err := a.service.RecordSale(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

// handlePreview reports the running total for a sale being entered. Unparseable
// quantities preview as zero, like an empty form field.
func (a *API) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.PreviewRequest{ItemName: q.Get("item_name")}
	if qty, err := strconv.Atoi(strings.TrimSpace(q.Get("quantity"))); err == nil {
		req.Quantity = qty
	}
	if raw := strings.TrimSpace(q.Get("unit_price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: unit_price must be a number", domain.ErrInvalidItem))
			return
		}
		req.UnitPrice = price
	}

	writeJSON(w, http.StatusOK, map[string]any{"total": a.service.PreviewTotal(r.Context(), req)})
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"transactions": a.service.ListTransactions(r.Context())})
}

func (a *API) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("transaction id must be an integer"))
		return
	}
	a.service.DeleteTransaction(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearConfirmation(w http.ResponseWriter, r *http.Request) {
	token, expiresAt, err := a.confirm.Issue(ActionClearTransactions)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"header":     confirmHeader,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

func (a *API) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(confirmHeader))
	if err := a.confirm.Verify(token, ActionClearTransactions); err != nil {
		writeError(w, r, statusFor(err, http.StatusPreconditionFailed), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": a.service.ClearAllTransactions(r.Context())})
}

func (a *API) handleResolvePeriod(w http.ResponseWriter, r *http.Request) {
	sel, err := a.selectionFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   sel.Kind(),
		"anchor": sel.Anchor(),
		"range":  sel.Range(),
	})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	sel, err := a.selectionFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, statusFor(err, http.StatusBadRequest), err)
		return
	}

	result := a.service.Summary(r.Context(), sel.Range())
	filename := "sales-summary-" + result.Range.Start.Format(domain.DateLayout)
	if result.Range.Days() > 1 {
		filename += "-to-" + result.Range.End.Format(domain.DateLayout)
	}

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "json":
		writeJSON(w, http.StatusOK, result)
	case "csv":
		body, err := report.ToCSV(result)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", filename+".csv", body)
	case "xlsx":
		body, err := report.ToXLSX(result)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename+".xlsx", body)
	case "html", "pdf":
		page, err := report.ToPrintableHTML(result)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(page))
	default:
		writeError(w, r, http.StatusBadRequest, errors.New("format must be one of json, csv, xlsx, html"))
	}
}

// selectionFromQuery applies, in order of precedence, a quick-select, an
// explicit start/end range, or a kind with an optional anchor. With no
// parameters the selection is today.
func (a *API) selectionFromQuery(q url.Values) (*period.Selection, error) {
	sel := a.service.NewSelection()

	if quick := strings.TrimSpace(q.Get("quick")); quick != "" {
		if err := sel.Quick(quick, a.service.Now()); err != nil {
			return nil, err
		}
		return sel, nil
	}

	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if start != "" || end != "" {
		if err := sel.SetRange(start, end); err != nil {
			return nil, err
		}
		return sel, nil
	}

	if raw := strings.TrimSpace(q.Get("kind")); raw != "" {
		kind, err := period.ParseKind(raw)
		if err != nil {
			return nil, err
		}
		if err := sel.SetKind(kind); err != nil {
			return nil, err
		}
	}
	if anchor := strings.TrimSpace(q.Get("anchor")); anchor != "" {
		if err := sel.SetAnchor(anchor); err != nil {
			return nil, err
		}
	} else if sel.Kind() == period.Range {
		return nil, fmt.Errorf("%w: range needs start and end", domain.ErrInvalidDate)
	}
	return sel, nil
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateItem):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConfirmationRequired):
		return http.StatusPreconditionFailed
	default:
		return fallback
	}
}

// decodeJSON reads a single JSON object. A non-integer quantity is reported as
// an invalid quantity rather than a generic decode failure.
func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "quantity" {
			return fmt.Errorf("%w: quantity must be a whole number", domain.ErrInvalidQuantity)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeAttachment(w http.ResponseWriter, contentType string, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx detail stays in the log.
	msg := err.Error()
	if status >= 500 {
		logger.FromContext(r.Context()).Errorw("internal error", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
