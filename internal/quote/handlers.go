// Package quote exposes the pricing engine over HTTP.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pricing/internal/campaign"
	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

type catalogQuoter interface {
	QuoteProduct(ctx context.Context, productID string, quantity int) (catalog.ProductQuote, error)
	ResolveLines(ctx context.Context, refs []catalog.LineRef) ([]pricing.Line, error)
	QuoteOrder(ctx context.Context, in pricing.OrderInput) (pricing.OrderSummary, error)
}

// Handler serves quote endpoints.
type Handler struct {
	engine   *pricing.Engine
	catalog  catalogQuoter
	validate *validator.Validate
	currency money.Currency
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Engine *pricing.Engine
	// Catalog is optional; without it only inline quotes are served.
	Catalog         catalogQuoter
	DefaultCurrency money.Currency
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	engine := cfg.Engine
	if engine == nil {
		engine = &pricing.Engine{}
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{engine: engine, catalog: cfg.Catalog, validate: v, currency: money.ParseCurrency(string(cfg.DefaultCurrency))}
}

// Routes mounts the quote endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/pricing/quote", h.Quote)
	r.Get("/products/{productID}/quote", h.ProductQuote)
	r.Post("/orders/quote", h.OrderQuote)
}

// Quote handles POST /api/v1/pricing/quote for caller-supplied prices and offers.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "inline", err)
		return
	}
	at := h.now()
	result, err := h.engine.Calculate(pricing.Input{
		At:           at,
		BasePrice:    *req.BasePrice,
		Quantity:     *req.Quantity,
		Offers:       req.Offers,
		PromoPrice:   req.PromoPrice,
		PromoActive:  req.PromoActive,
		CustomerUses: req.CustomerUses,
	})
	if err != nil {
		h.fail(w, "inline", err)
		return
	}
	obs.ObserveQuote("inline", "ok")
	common.Data(w, http.StatusOK, h.present(result, req.Offers, h.currencyFor(req.Currency), at))
}

// ProductQuote handles GET /api/v1/products/{productID}/quote?quantity=N.
func (h *Handler) ProductQuote(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog not configured", nil)
		return
	}
	quantity := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, "product", common.BadRequest("quantity must be an integer", nil))
			return
		}
		quantity = n
	}
	pq, err := h.catalog.QuoteProduct(r.Context(), chi.URLParam(r, "productID"), quantity)
	if err != nil {
		h.fail(w, "product", err)
		return
	}
	currency := pq.Product.Currency
	if raw := r.URL.Query().Get("currency"); raw != "" {
		currency = h.currencyFor(raw)
	}
	obs.ObserveQuote("product", "ok")
	common.Data(w, http.StatusOK, ProductQuoteResponse{
		QuoteResponse:   h.present(pq.Result, pq.Offers, money.ParseCurrency(string(currency)), pq.QuotedAt),
		Product:         pq.Product,
		OfferSetVersion: pq.Version,
		Cached:          pq.Cached,
	})
}

// OrderQuote handles POST /api/v1/orders/quote.
func (h *Handler) OrderQuote(w http.ResponseWriter, r *http.Request) {
	var req orderQuoteRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "order", err)
		return
	}
	lines, err := h.orderLines(r.Context(), req.Lines)
	if err != nil {
		h.fail(w, "order", err)
		return
	}
	in := pricing.OrderInput{Lines: lines, Offers: req.Offers, CustomerUses: req.CustomerUses}
	if req.DeliveryCost != nil {
		in.DeliveryCost = *req.DeliveryCost
	}
	var summary pricing.OrderSummary
	if h.catalog != nil {
		summary, err = h.catalog.QuoteOrder(r.Context(), in)
	} else {
		summary, err = h.engine.QuoteOrder(in)
	}
	if err != nil {
		h.fail(w, "order", err)
		return
	}
	currency := h.currencyFor(req.Currency)
	obs.ObserveQuote("order", "ok")
	common.Data(w, http.StatusOK, OrderQuoteResponse{OrderSummary: summary, Currency: currency, Formatted: formatSummary(summary.Summary, currency)})
}

// orderLines keeps request order, loading catalog-backed lines in one pass.
func (h *Handler) orderLines(ctx context.Context, reqs []orderLineRequest) ([]pricing.Line, error) {
	lines := make([]pricing.Line, len(reqs))
	var (
		refs    []catalog.LineRef
		indexes []int
	)
	for i, l := range reqs {
		if l.BasePrice != nil {
			lines[i] = pricing.Line{
				ProductID:   l.ProductID,
				BasePrice:   *l.BasePrice,
				Quantity:    *l.Quantity,
				Offers:      l.Offers,
				PromoPrice:  l.PromoPrice,
				PromoActive: l.PromoActive,
			}
			continue
		}
		refs = append(refs, catalog.LineRef{ProductID: l.ProductID, Quantity: *l.Quantity})
		indexes = append(indexes, i)
	}
	if len(refs) == 0 {
		return lines, nil
	}
	if h.catalog == nil {
		return nil, common.BadRequest("catalog lines need basePrice when no catalog is configured", nil)
	}
	resolved, err := h.catalog.ResolveLines(ctx, refs)
	if err != nil {
		return nil, err
	}
	for j, idx := range indexes {
		line := resolved[j]
		line.Offers = append(line.Offers, reqs[idx].Offers...)
		lines[idx] = line
	}
	return lines, nil
}

func (h *Handler) present(result pricing.Result, offers []offer.Offer, currency money.Currency, at time.Time) QuoteResponse {
	return QuoteResponse{
		Result:    result,
		Currency:  currency,
		Formatted: formatResult(result, currency),
		Badge:     campaign.Badge(result, string(currency)),
		Campaign:  campaign.Lines(offers, result, string(currency), at),
	}
}

func (h *Handler) now() time.Time {
	if h.engine.Now != nil {
		return h.engine.Now()
	}
	return time.Now()
}

func (h *Handler) currencyFor(raw string) money.Currency {
	if strings.TrimSpace(raw) == "" {
		return h.currency
	}
	return money.ParseCurrency(raw)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.BadRequest("invalid payload", nil)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fieldPath(fe.Namespace())] = fe.Tag()
			}
			return common.BadRequest("validation failed", details)
		}
		return common.BadRequest("validation failed", nil)
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func (h *Handler) fail(w http.ResponseWriter, endpoint string, err error) {
	appErr := toAppError(err)
	obs.ObserveQuote(endpoint, outcome(appErr))
	common.WriteError(w, appErr)
}

func toAppError(err error) error {
	if _, ok := common.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrInvalidPrice):
		return common.InvalidInput(err)
	case errors.Is(err, catalog.ErrInvalidProductID):
		return common.BadRequest(err.Error(), nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		return common.NotFound("product not found", err)
	}
	return err
}

func outcome(err error) string {
	appErr, ok := common.AsAppError(err)
	if !ok {
		return "error"
	}
	return strings.ToLower(appErr.Code)
}
