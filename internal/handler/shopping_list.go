package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/cache"
	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

type ShoppingListHandler struct {
	listStore   *store.ShoppingListStore
	comparisons cache.Comparisons
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewShoppingListHandler(ls *store.ShoppingListStore, comparisons cache.Comparisons, hub *websocket.Hub, logger *slog.Logger) *ShoppingListHandler {
	return &ShoppingListHandler{listStore: ls, comparisons: comparisons, hub: hub, logger: logger}
}

// notify invalidates the list's cached comparison and tells the owner's
// other sessions what changed.
func (h *ShoppingListHandler) notify(ctx context.Context, entity, action string, id, listID int64, extra map[string]any) {
	if h.comparisons != nil {
		if err := h.comparisons.Invalidate(ctx, listID); err != nil {
			h.logger.Warn("invalidate comparison", "list_id", listID, "error", err)
		}
	}
	if h.hub != nil {
		h.hub.Publish(auth.UserID(ctx), websocket.NewMessage(entity, action, id, listID, extra))
	}
}

func (h *ShoppingListHandler) serverError(w http.ResponseWriter, op string, err error, args ...any) {
	h.logger.Error(op, append(args, "error", err)...)
	writeDetail(w, http.StatusInternalServerError, msgServerError)
}

// loadList resolves {id} to one of the caller's lists, writing a 404 when
// there is none.
func (h *ShoppingListHandler) loadList(w http.ResponseWriter, r *http.Request) (*model.ShoppingList, bool) {
	listID, err := parseIDParam(r, "id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	list, err := h.listStore.Get(auth.UserID(r.Context()), listID)
	if err != nil {
		h.serverError(w, "get list", err, "list_id", listID)
		return nil, false
	}
	if list == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	return list, true
}

// --- List handlers ---

func (h *ShoppingListHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageNumber(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	status := model.ListStatus(r.URL.Query().Get("status"))

	lists, total, err := h.listStore.List(auth.UserID(r.Context()), status, pageSize, (page-1)*pageSize)
	if err != nil {
		h.serverError(w, "list lists", err)
		return
	}
	if beyondLastPage(page, total) {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	writeJSON(w, http.StatusOK, pageOf(r, lists, total, page))
}

func (h *ShoppingListHandler) Get(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ShoppingListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ListInput
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	errs := fieldErrors{}
	validateName(errs, "name", req.Name)
	if req.Status != "" && !req.Status.Valid() {
		errs.add("status", invalidChoice(string(req.Status)))
	}
	if errs.respond(w) {
		return
	}

	list, err := h.listStore.Create(auth.UserID(r.Context()), req)
	if err != nil {
		h.serverError(w, "create list", err)
		return
	}
	h.notify(r.Context(), websocket.EntityList, "created", list.ID, list.ID, nil)
	writeJSON(w, http.StatusCreated, list)
}

func (h *ShoppingListHandler) Update(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var patch model.ListPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		if name == "" {
			errs.add("name", msgBlank)
		} else {
			validateName(errs, "name", name)
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		errs.add("status", invalidChoice(string(*patch.Status)))
	}
	if errs.respond(w) {
		return
	}

	updated, err := h.listStore.Update(list.UserID, list.ID, patch)
	if err != nil {
		h.serverError(w, "update list", err, "list_id", list.ID)
		return
	}
	if updated == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.notify(r.Context(), websocket.EntityList, "updated", list.ID, list.ID, map[string]any{"status": updated.Status})
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShoppingListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	if _, err := h.listStore.Delete(list.UserID, list.ID); err != nil {
		h.serverError(w, "delete list", err, "list_id", list.ID)
		return
	}
	h.notify(r.Context(), websocket.EntityList, "deleted", list.ID, list.ID, nil)
	writeMessage(w, http.StatusOK, "Shopping list deleted successfully")
}

func (h *ShoppingListHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	dup, err := h.listStore.Duplicate(list.UserID, list.ID)
	if err != nil {
		h.serverError(w, "duplicate list", err, "list_id", list.ID)
		return
	}
	if dup == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.notify(r.Context(), websocket.EntityList, "created", dup.ID, dup.ID, map[string]any{"duplicated_from": list.ID})
	writeJSON(w, http.StatusCreated, dup)
}

// GenerateFromReceipt copies the lines of one of the caller's receipts into
// a new list.
func (h *ShoppingListHandler) GenerateFromReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiptID *int64 `json:"receipt_id"`
		ListName  string `json:"list_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	name := strings.TrimSpace(req.ListName)

	errs := fieldErrors{}
	if req.ReceiptID == nil {
		errs.add("receipt_id", msgRequired)
	}
	if len(name) > maxReceiptText {
		errs.add("list_name", "Ensure this field has no more than 255 characters.")
	}
	if errs.respond(w) {
		return
	}

	list, err := h.listStore.GenerateFromReceipt(auth.UserID(r.Context()), *req.ReceiptID, name)
	if err != nil {
		h.serverError(w, "generate list from receipt", err, "receipt_id", *req.ReceiptID)
		return
	}
	if list == nil {
		fieldErrors{"receipt_id": {"Receipt not found or access denied."}}.respond(w)
		return
	}
	h.notify(r.Context(), websocket.EntityList, "created", list.ID, list.ID, map[string]any{"receipt_id": *req.ReceiptID})
	writeJSON(w, http.StatusCreated, list)
}

// --- Item handlers ---

func (h *ShoppingListHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var checked *bool
	if raw := r.URL.Query().Get("is_checked"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fieldErrors{"is_checked": {"Must be a valid boolean."}}.respond(w)
			return
		}
		checked = &v
	}

	items, err := h.listStore.ListItems(list.ID, checked)
	if err != nil {
		h.serverError(w, "list items", err, "list_id", list.ID)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingListHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	item, err := h.listStore.GetItem(list.ID, itemID)
	if err != nil {
		h.serverError(w, "get item", err, "list_id", list.ID, "item_id", itemID)
		return
	}
	if item == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// itemRequest is the add-item payload. Quantity is a pointer so an omitted
// quantity can default to 1.
type itemRequest struct {
	ProductID      *int64           `json:"product"`
	ProductName    string           `json:"product_name"`
	Quantity       *decimal.Decimal `json:"quantity"`
	Unit           string           `json:"unit"`
	EstimatedPrice *decimal.Decimal `json:"estimated_price"`
	Notes          string           `json:"notes"`
	Position       *int             `json:"position"`
}

func (req itemRequest) input(errs fieldErrors, prefix string) model.ItemInput {
	in := model.ItemInput{
		ProductID:      req.ProductID,
		ProductName:    strings.TrimSpace(req.ProductName),
		Quantity:       decimal.NewFromInt(1),
		Unit:           req.Unit,
		EstimatedPrice: req.EstimatedPrice,
		Notes:          req.Notes,
		Position:       req.Position,
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}

	if in.ProductID == nil && in.ProductName == "" {
		errs.add(prefix+"non_field_errors", "Either product or product_name must be provided.")
	}
	if len(in.ProductName) > maxNameLength {
		errs.add(prefix+"product_name", "Ensure this field has no more than 200 characters.")
	}
	if !in.Quantity.IsPositive() {
		errs.add(prefix+"quantity", "Ensure this value is greater than 0.")
	}
	if in.EstimatedPrice != nil && in.EstimatedPrice.IsNegative() {
		errs.add(prefix+"estimated_price", "Ensure this value is greater than or equal to 0.")
	}
	if in.Position != nil && *in.Position < 0 {
		errs.add(prefix+"position", "Ensure this value is greater than or equal to 0.")
	}
	return in
}

func (h *ShoppingListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	errs := fieldErrors{}
	in := req.input(errs, "")
	if errs.respond(w) {
		return
	}

	item, err := h.listStore.AddItem(list.ID, in)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"product": {invalidPK(*in.ProductID)}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "add item", err, "list_id", list.ID)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "created", item.ID, list.ID, nil)
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingListHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var req struct {
		Items []itemRequest `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if len(req.Items) == 0 {
		errs.add("items", "At least one item is required.")
	}
	inputs := make([]model.ItemInput, 0, len(req.Items))
	for i, item := range req.Items {
		inputs = append(inputs, item.input(errs, fmt.Sprintf("items.%d.", i)))
	}
	if errs.respond(w) {
		return
	}

	items, err := h.listStore.AddItems(list.ID, inputs)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"items": {"One or more products do not exist."}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "add items", err, "list_id", list.ID)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "created", 0, list.ID, map[string]any{"count": len(items)})
	writeJSON(w, http.StatusCreated, items)
}

func (h *ShoppingListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	var patch model.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if patch.ProductName != nil {
		name := strings.TrimSpace(*patch.ProductName)
		patch.ProductName = &name
		if name == "" {
			errs.add("product_name", msgBlank)
		}
	}
	if patch.Quantity != nil && !patch.Quantity.IsPositive() {
		errs.add("quantity", "Ensure this value is greater than 0.")
	}
	if patch.EstimatedPrice != nil && patch.EstimatedPrice.IsNegative() {
		errs.add("estimated_price", "Ensure this value is greater than or equal to 0.")
	}
	if patch.Position != nil && *patch.Position < 0 {
		errs.add("position", "Ensure this value is greater than or equal to 0.")
	}
	if errs.respond(w) {
		return
	}

	item, err := h.listStore.UpdateItem(list.ID, itemID, patch)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"product": {invalidPK(*patch.ProductID)}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "update item", err, "list_id", list.ID, "item_id", itemID)
		return
	}
	if item == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "updated", item.ID, list.ID, nil)
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	deleted, err := h.listStore.DeleteItem(list.ID, itemID)
	if err != nil {
		h.serverError(w, "delete item", err, "list_id", list.ID, "item_id", itemID)
		return
	}
	if !deleted {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "deleted", itemID, list.ID, nil)
	writeMessage(w, http.StatusOK, "Item deleted successfully")
}

func (h *ShoppingListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	item, err := h.listStore.ToggleItem(list.ID, itemID)
	if err != nil {
		h.serverError(w, "toggle item", err, "list_id", list.ID, "item_id", itemID)
		return
	}
	if item == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "toggled", item.ID, list.ID, map[string]any{"is_checked": item.IsChecked})
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingListHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	n, err := h.listStore.ClearChecked(list.ID)
	if err != nil {
		h.serverError(w, "clear checked", err, "list_id", list.ID)
		return
	}
	if n > 0 {
		h.notify(r.Context(), websocket.EntityItem, "cleared", 0, list.ID, map[string]any{"deleted_count": n})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("%d items removed successfully", n),
		"deleted_count": n,
	})
}

func (h *ShoppingListHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var req struct {
		ItemOrders []map[string]*int64 `json:"item_orders"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if req.ItemOrders == nil {
		fieldErrors{"item_orders": {msgRequired}}.respond(w)
		return
	}

	orders := make([]model.ItemOrder, 0, len(req.ItemOrders))
	for _, o := range req.ItemOrders {
		id, pos := o["item_id"], o["position"]
		if id == nil || pos == nil {
			fieldErrors{"item_orders": {"Each item must have 'item_id' and 'position' fields."}}.respond(w)
			return
		}
		orders = append(orders, model.ItemOrder{ItemID: *id, Position: int(*pos)})
	}

	if err := h.listStore.Reorder(list.ID, orders); err != nil {
		h.serverError(w, "reorder items", err, "list_id", list.ID)
		return
	}
	h.notify(r.Context(), websocket.EntityItem, "reordered", 0, list.ID, nil)
	writeMessage(w, http.StatusOK, "Items reordered successfully")
}

// --- Pricing handlers ---

// ComparePrices prices the list's catalog-linked items at every store. The
// result is cached until the list or any price changes.
func (h *ShoppingListHandler) ComparePrices(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if h.comparisons != nil {
		cached, hit, err := h.comparisons.Get(ctx, list.ID)
		if err != nil {
			h.logger.Warn("read comparison cache", "list_id", list.ID, "error", err)
		}
		if hit {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	offers, err := h.listStore.CompareOffers(list.ID)
	if err != nil {
		h.serverError(w, "compare offers", err, "list_id", list.ID)
		return
	}
	c := compare.Build(list.ID, list.Name, offers)
	if c.Message != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   c.Message,
			"list_id":   c.ListID,
			"list_name": c.ListName,
		})
		return
	}

	if h.comparisons != nil {
		if err := h.comparisons.Set(ctx, list.ID, c); err != nil {
			h.logger.Warn("write comparison cache", "list_id", list.ID, "error", err)
		}
	}
	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, c)
}

func (h *ShoppingListHandler) AutoEstimate(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	updated, total, err := h.listStore.AutoEstimate(list.ID)
	if err != nil {
		h.serverError(w, "auto estimate", err, "list_id", list.ID)
		return
	}
	if updated > 0 {
		h.notify(r.Context(), websocket.EntityList, "estimated", list.ID, list.ID, map[string]any{"updated_count": updated})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("Estimated prices updated for %d items", updated),
		"updated_count":   updated,
		"estimated_total": total.StringFixed(2),
	})
}

func invalidPK(id int64) string {
	return fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, id)
}

func invalidChoice(v string) string {
	return fmt.Sprintf(`"%s" is not a valid choice.`, v)
}
