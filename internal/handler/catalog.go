package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/dukerupert/basket/internal/cache"
	"github.com/dukerupert/basket/internal/catalog"
	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

const maxNameLength = 200

type CatalogHandler struct {
	catalogStore *store.CatalogStore
	comparisons  cache.Comparisons
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewCatalogHandler(cs *store.CatalogStore, comparisons cache.Comparisons, hub *websocket.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalogStore: cs, comparisons: comparisons, hub: hub, logger: logger}
}

func (h *CatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.catalogStore.ListStores()
	if err != nil {
		h.logger.Error("list stores", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *CatalogHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req model.StoreInput
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	errs := fieldErrors{}
	validateName(errs, "name", req.Name)
	if req.Name != "" {
		existing, err := h.catalogStore.GetStoreByName(req.Name)
		if err != nil {
			h.logger.Error("check store name", "error", err)
			writeDetail(w, http.StatusInternalServerError, msgServerError)
			return
		}
		if existing != nil {
			errs.add("name", "store with this name already exists.")
		}
	}
	if errs.respond(w) {
		return
	}

	st, err := h.catalogStore.CreateStore(req)
	if err != nil {
		h.logger.Error("create store", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// SearchProducts pages through active products; ?search filters by name,
// brand or barcode.
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := pageNumber(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	products, total, err := h.catalogStore.SearchProducts(r.URL.Query().Get("search"), pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("search products", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if beyondLastPage(page, total) {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	writeJSON(w, http.StatusOK, pageOf(r, products, total, page))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	errs := fieldErrors{}
	validateName(errs, "name", req.Name)
	if req.Category != "" && !knownCategory(req.Category) {
		errs.add("category", `"`+req.Category+`" is not a valid choice.`)
	}
	if errs.respond(w) {
		return
	}

	p, err := h.catalogStore.CreateProduct(req)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			errs.add("barcode", "product with this barcode already exists.")
			errs.respond(w)
			return
		}
		h.logger.Error("create product", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) ProductPrices(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	p, err := h.catalogStore.GetProduct(productID)
	if err != nil {
		h.logger.Error("get product", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if p == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	prices, err := h.catalogStore.ActivePrices(productID)
	if err != nil {
		h.logger.Error("active prices", "product_id", productID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// CompareProduct sets a product's active prices side by side.
func (h *CatalogHandler) CompareProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	p, err := h.catalogStore.GetProduct(productID)
	if err != nil {
		h.logger.Error("get product", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if p == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	entries, err := h.catalogStore.PriceEntries(productID)
	if err != nil {
		h.logger.Error("price entries", "product_id", productID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, compare.Product(*p, entries))
}

// CompareMultiple compares several products at once. Unknown products and
// products without prices are left out.
func (h *CatalogHandler) CompareMultiple(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []int64 `json:"product_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if len(req.ProductIDs) == 0 {
		writeError(w, http.StatusBadRequest, "product_ids array is required")
		return
	}

	var products []model.Product
	prices := make(map[int64][]model.ProductPriceEntry, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if _, seen := prices[id]; seen {
			continue
		}
		p, err := h.catalogStore.GetProduct(id)
		if err != nil {
			h.logger.Error("get product", "product_id", id, "error", err)
			writeDetail(w, http.StatusInternalServerError, msgServerError)
			return
		}
		if p == nil {
			continue
		}
		entries, err := h.catalogStore.PriceEntries(id)
		if err != nil {
			h.logger.Error("price entries", "product_id", id, "error", err)
			writeDetail(w, http.StatusInternalServerError, msgServerError)
			return
		}
		products = append(products, *p)
		prices[id] = entries
	}
	writeJSON(w, http.StatusOK, compare.Products(products, prices))
}

// RecordPrice stores a price observation. Every cached comparison may now be
// stale, so the cache is flushed and all clients are told.
func (h *CatalogHandler) RecordPrice(w http.ResponseWriter, r *http.Request) {
	var req model.PriceInput
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if req.ProductID == 0 {
		errs.add("product", msgRequired)
	} else if p, err := h.catalogStore.GetProduct(req.ProductID); err != nil {
		h.logger.Error("get product", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	} else if p == nil {
		errs.add("product", invalidPK(req.ProductID))
	}
	if req.StoreID == 0 {
		errs.add("store", msgRequired)
	} else if st, err := h.catalogStore.GetStore(req.StoreID); err != nil {
		h.logger.Error("get store", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	} else if st == nil {
		errs.add("store", invalidPK(req.StoreID))
	}
	if !req.Price.IsPositive() {
		errs.add("price", "Ensure this value is greater than 0.")
	}
	if errs.respond(w) {
		return
	}

	price, err := h.catalogStore.RecordPrice(req)
	if err != nil {
		h.logger.Error("record price", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}

	h.flushComparisons(r.Context())
	if h.hub != nil {
		h.hub.PublishAll(websocket.NewMessage(websocket.EntityPrice, "recorded", price.ID, 0, map[string]any{
			"product": price.ProductID,
			"store":   price.StoreID,
		}))
	}
	writeJSON(w, http.StatusCreated, price)
}

func (h *CatalogHandler) flushComparisons(ctx context.Context) {
	if h.comparisons == nil {
		return
	}
	if err := h.comparisons.Flush(ctx); err != nil {
		h.logger.Warn("flush comparison cache", "error", err)
	}
}

func validateName(errs fieldErrors, field, name string) {
	switch {
	case name == "":
		errs.add(field, msgRequired)
	case len(name) > maxNameLength:
		errs.add(field, "Ensure this field has no more than 200 characters.")
	}
}

func knownCategory(c string) bool {
	return slices.Contains(catalog.Categories, c)
}
