package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/app"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// CatalogAdmin is the minimal interface the admin endpoints need.
type CatalogAdmin interface {
	CreateItem(ctx context.Context, in app.CreateItemInput) (domain.InventoryItem, error)
	RetireItem(ctx context.Context, businessID, itemID string) error
	ListItems(ctx context.Context, businessID string) ([]domain.InventoryItem, error)
	SetPolicy(ctx context.Context, policy domain.BusinessPolicy) error
}

// HandleAdminItems serves POST /admin/items and GET /admin/items?business_id=.
func HandleAdminItems(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createItem(w, r, svc)
		case http.MethodGet:
			listItems(w, r, svc)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminItemRetire serves POST /admin/items/{id}/retire.
func HandleAdminItemRetire(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		itemID, ok := parseRetirePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		businessID := r.URL.Query().Get("business_id")

		if err := svc.RetireItem(r.Context(), businessID, itemID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAdminPolicy serves PUT /admin/policy.
func HandleAdminPolicy(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var body policyJSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		policy, err := body.toDomain()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		if err := svc.SetPolicy(r.Context(), policy); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createItem(w http.ResponseWriter, r *http.Request, svc CatalogAdmin) {
	var body struct {
		BusinessID      string `json:"business_id"`
		Name            string `json:"name"`
		Type            string `json:"type"`
		QuantityOwned   int    `json:"quantity_owned"`
		SetupMinutes    int    `json:"setup_minutes"`
		TeardownMinutes int    `json:"teardown_minutes"`
		UnitPrice       string `json:"unit_price"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	price, err := decimal.NewFromString(body.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unit_price must be a decimal string")
		return
	}

	item, err := svc.CreateItem(r.Context(), app.CreateItemInput{
		BusinessID:      body.BusinessID,
		Name:            body.Name,
		Type:            domain.ItemType(body.Type),
		QuantityOwned:   body.QuantityOwned,
		SetupMinutes:    body.SetupMinutes,
		TeardownMinutes: body.TeardownMinutes,
		UnitPrice:       price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(itemResponse(item))
}

func listItems(w http.ResponseWriter, r *http.Request, svc CatalogAdmin) {
	businessID := r.URL.Query().Get("business_id")

	items, err := svc.ListItems(r.Context(), businessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]itemJSON, 0, len(items))
	for _, item := range items {
		resp = append(resp, itemResponse(item))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func parseRetirePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "items" || parts[3] != "retire" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type itemJSON struct {
	ID              string `json:"id"`
	BusinessID      string `json:"business_id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	QuantityOwned   int    `json:"quantity_owned"`
	SetupMinutes    int    `json:"setup_minutes"`
	TeardownMinutes int    `json:"teardown_minutes"`
	Status          string `json:"status"`
	UnitPrice       string `json:"unit_price"`
}

func itemResponse(item domain.InventoryItem) itemJSON {
	return itemJSON{
		ID:              item.ID,
		BusinessID:      item.BusinessID,
		Name:            item.Name,
		Type:            string(item.Type),
		QuantityOwned:   item.QuantityOwned,
		SetupMinutes:    item.SetupMinutes,
		TeardownMinutes: item.TeardownMinutes,
		Status:          string(item.Status),
		UnitPrice:       item.UnitPrice.StringFixed(2),
	}
}

type policyJSON struct {
	BusinessID        string `json:"business_id"`
	TaxRate           string `json:"tax_rate"`
	DepositRate       string `json:"deposit_rate"`
	DepositFlat       string `json:"deposit_flat"`
	MinAdvanceMinutes int    `json:"min_advance_minutes"`
	MaxAdvanceMinutes int    `json:"max_advance_minutes"`
	MinimumPurchase   string `json:"minimum_purchase"`
}

func (p policyJSON) toDomain() (domain.BusinessPolicy, error) {
	parse := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}

	taxRate, err := parse(p.TaxRate)
	if err != nil {
		return domain.BusinessPolicy{}, err
	}
	depositRate, err := parse(p.DepositRate)
	if err != nil {
		return domain.BusinessPolicy{}, err
	}
	depositFlat, err := parse(p.DepositFlat)
	if err != nil {
		return domain.BusinessPolicy{}, err
	}
	minPurchase, err := parse(p.MinimumPurchase)
	if err != nil {
		return domain.BusinessPolicy{}, err
	}

	return domain.BusinessPolicy{
		BusinessID:      p.BusinessID,
		TaxRate:         taxRate,
		DepositRate:     depositRate,
		DepositFlat:     depositFlat,
		MinAdvance:      time.Duration(p.MinAdvanceMinutes) * time.Minute,
		MaxAdvance:      time.Duration(p.MaxAdvanceMinutes) * time.Minute,
		MinimumPurchase: minPurchase,
	}, nil
}
