package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/internal/service"
	"github.com/segyhp/fleet-charges/pkg/response"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/gorilla/mux"
)

type ChargeHandler struct {
	service *service.ChargeService
}

func NewChargeHandler(service *service.ChargeService) *ChargeHandler {
	return &ChargeHandler{service: service}
}

// ListCharges filters and paginates charges from the URL query.
func (h *ChargeHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
	q, err := parseChargeQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "Invalid query", err)
		return
	}

	page, err := h.service.QueryCharges(r.Context(), q)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, page)
}

func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var input domain.ChargeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	charge, err := h.service.CreateCharge(r.Context(), input)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, charge)
}

// PreviewCharge returns the schedule of an in-progress form. Incomplete input
// yields an empty schedule, never an error.
func (h *ChargeHandler) PreviewCharge(w http.ResponseWriter, r *http.Request) {
	var input domain.ChargeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	response.Success(w, h.service.PreviewSchedule(input))
}

func (h *ChargeHandler) GetCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := h.service.GetCharge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, charge)
}

func (h *ChargeHandler) UpdateCharge(w http.ResponseWriter, r *http.Request) {
	var input domain.ChargeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	charge, err := h.service.UpdateCharge(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, charge)
}

func (h *ChargeHandler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCharge(r.Context(), mux.Vars(r)["id"]); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *ChargeHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := h.service.ListInstallments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installments)
}

func (h *ChargeHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ComputePaymentStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, status)
}

func (h *ChargeHandler) ValidateCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := h.service.ValidateCharge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, charge)
}

func (h *ChargeHandler) InvalidateCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := h.service.InvalidateCharge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, charge)
}

func (h *ChargeHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	installment, err := h.service.MarkPaid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installment)
}

func (h *ChargeHandler) MarkUnpaid(w http.ResponseWriter, r *http.Request) {
	installment, err := h.service.MarkUnpaid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, installment)
}

type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string {
	return "invalid value " + strconv.Quote(e.value) + " for " + e.param
}

// parseChargeQuery reads the listing state. Multi-valued params accept both
// repetition (?city=a&city=b) and comma separation (?city=a,b).
func parseChargeQuery(values url.Values) (domain.ChargeQuery, error) {
	q := domain.ChargeQuery{
		Search:       values.Get("search"),
		CategoryIDs:  multi(values, "category"),
		SupplierIDs:  multi(values, "supplier"),
		CityIDs:      multi(values, "city"),
		AmbulanceIDs: multi(values, "ambulance"),
	}

	var err error
	if q.Types, err = enumValues(values, "type", domain.ChargeTypeRecurring, domain.ChargeTypeVariable); err != nil {
		return q, err
	}
	if q.PaidStatuses, err = enumValues(values, "paid", domain.PaymentStatusPaid, domain.PaymentStatusUnpaid); err != nil {
		return q, err
	}
	if q.Validities, err = enumValues(values, "validity", domain.ValidityValid, domain.ValidityInvalid); err != nil {
		return q, err
	}

	for _, bound := range []struct {
		param  string
		target **time.Time
	}{
		{"from", &q.DateFrom},
		{"to", &q.DateTo},
	} {
		raw := values.Get(bound.param)
		if raw == "" {
			continue
		}
		t, err := utils.ParseDate(raw)
		if err != nil {
			return q, &queryError{param: bound.param, value: raw}
		}
		*bound.target = &t
	}

	for _, num := range []struct {
		param  string
		target *int
	}{
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	} {
		raw := values.Get(num.param)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || (num.param == "page_size" && n < 1) {
			return q, &queryError{param: num.param, value: raw}
		}
		*num.target = n
	}

	return q, nil
}

func multi(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func enumValues[T ~string](values url.Values, key string, allowed ...T) ([]T, error) {
	raw := multi(values, key)
	if len(raw) == 0 {
		return nil, nil
	}

	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if !slices.Contains(allowed, T(v)) {
			return nil, &queryError{param: key, value: v}
		}
		out = append(out, T(v))
	}
	return out, nil
}
