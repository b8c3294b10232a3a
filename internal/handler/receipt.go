package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

const maxReceiptText = 255

const (
	msgNonNegative = "Ensure this value is greater than or equal to 0."
	msgPositive    = "Ensure this value is greater than 0."
	msgTooLong     = "Ensure this field has no more than 255 characters."
	msgBadDate     = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

type ReceiptHandler struct {
	receiptStore *store.ReceiptStore
	logger       *slog.Logger
}

func NewReceiptHandler(rs *store.ReceiptStore, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{receiptStore: rs, logger: logger}
}

func (h *ReceiptHandler) serverError(w http.ResponseWriter, op string, err error, args ...any) {
	h.logger.Error(op, append(args, "error", err)...)
	writeDetail(w, http.StatusInternalServerError, msgServerError)
}

// loadReceipt resolves {id} to one of the caller's receipts, writing a 404
// when there is none.
func (h *ReceiptHandler) loadReceipt(w http.ResponseWriter, r *http.Request) (*model.Receipt, bool) {
	receiptID, err := parseIDParam(r, "id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	rc, err := h.receiptStore.Get(auth.UserID(r.Context()), receiptID)
	if err != nil {
		h.serverError(w, "get receipt", err, "receipt_id", receiptID)
		return nil, false
	}
	if rc == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	return rc, true
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func checkNonNegative(errs fieldErrors, field string, v *decimal.Decimal) {
	if v != nil && v.IsNegative() {
		errs.add(field, msgNonNegative)
	}
}

// --- Receipt handlers ---

func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageNumber(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	q := r.URL.Query()
	f := model.ReceiptFilter{
		Status:    model.ReceiptStatus(q.Get("status")),
		Store:     strings.TrimSpace(q.Get("store")),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}

	errs := fieldErrors{}
	if f.Status != "" && !f.Status.Valid() {
		errs.add("status", invalidChoice(string(f.Status)))
	}
	if f.StartDate != "" && !validDate(f.StartDate) {
		errs.add("start_date", msgBadDate)
	}
	if f.EndDate != "" && !validDate(f.EndDate) {
		errs.add("end_date", msgBadDate)
	}
	if errs.respond(w) {
		return
	}

	receipts, total, err := h.receiptStore.List(auth.UserID(r.Context()), f, pageSize, (page-1)*pageSize)
	if err != nil {
		h.serverError(w, "list receipts", err)
		return
	}
	if beyondLastPage(page, total) {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	writeJSON(w, http.StatusOK, pageOf(r, receipts, total, page))
}

func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *ReceiptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ReceiptInput
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.StoreName = strings.TrimSpace(req.StoreName)
	req.StoreLocation = strings.TrimSpace(req.StoreLocation)

	errs := fieldErrors{}
	if req.StoreName == "" {
		errs.add("store_name", msgRequired)
	} else if len(req.StoreName) > maxReceiptText {
		errs.add("store_name", msgTooLong)
	}
	if len(req.StoreLocation) > maxReceiptText {
		errs.add("store_location", msgTooLong)
	}
	if req.PurchaseDate != nil && *req.PurchaseDate != "" && !validDate(*req.PurchaseDate) {
		errs.add("purchase_date", msgBadDate)
	}
	if req.PurchaseDate != nil && *req.PurchaseDate == "" {
		req.PurchaseDate = nil
	}
	checkNonNegative(errs, "tax_amount", req.TaxAmount)
	if req.Status != "" && !req.Status.Valid() {
		errs.add("status", invalidChoice(string(req.Status)))
	}
	for i := range req.Items {
		validateReceiptItem(errs, fmt.Sprintf("items.%d.", i), &req.Items[i])
	}
	if errs.respond(w) {
		return
	}

	userID := auth.UserID(r.Context())
	rc, err := h.receiptStore.Create(userID, req)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"items": {"One or more products do not exist."}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "create receipt", err)
		return
	}
	h.logger.Info("receipt created", "user_id", userID, "receipt_id", rc.ID, "items", rc.ItemsCount)
	writeJSON(w, http.StatusCreated, rc)
}

func (h *ReceiptHandler) Update(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}

	var patch model.ReceiptPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if patch.StoreName != nil {
		name := strings.TrimSpace(*patch.StoreName)
		patch.StoreName = &name
		if name == "" {
			errs.add("store_name", msgBlank)
		} else if len(name) > maxReceiptText {
			errs.add("store_name", msgTooLong)
		}
	}
	if patch.StoreLocation != nil && len(strings.TrimSpace(*patch.StoreLocation)) > maxReceiptText {
		errs.add("store_location", msgTooLong)
	}
	if patch.PurchaseDate != nil && *patch.PurchaseDate != "" && !validDate(*patch.PurchaseDate) {
		errs.add("purchase_date", msgBadDate)
	}
	checkNonNegative(errs, "total_amount", patch.TotalAmount)
	checkNonNegative(errs, "tax_amount", patch.TaxAmount)
	if errs.respond(w) {
		return
	}

	updated, err := h.receiptStore.Update(rc.UserID, rc.ID, patch)
	if err != nil {
		h.serverError(w, "update receipt", err, "receipt_id", rc.ID)
		return
	}
	if updated == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReceiptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	if _, err := h.receiptStore.Delete(rc.UserID, rc.ID); err != nil {
		h.serverError(w, "delete receipt", err, "receipt_id", rc.ID)
		return
	}
	writeMessage(w, http.StatusOK, "Receipt deleted successfully")
}

// --- Item handlers ---

func validateReceiptItem(errs fieldErrors, prefix string, in *model.ReceiptItemInput) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	if in.ProductName == "" {
		errs.add(prefix+"product_name", msgRequired)
	} else if len(in.ProductName) > maxReceiptText {
		errs.add(prefix+"product_name", msgTooLong)
	}
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		errs.add(prefix+"quantity", msgPositive)
	}
	if in.UnitPrice == nil {
		errs.add(prefix+"unit_price", msgRequired)
	} else {
		checkNonNegative(errs, prefix+"unit_price", in.UnitPrice)
	}
	checkNonNegative(errs, prefix+"total_price", in.TotalPrice)
}

func (h *ReceiptHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rc.Items)
}

func (h *ReceiptHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}

	var in model.ReceiptItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	errs := fieldErrors{}
	validateReceiptItem(errs, "", &in)
	if errs.respond(w) {
		return
	}

	items, err := h.receiptStore.AddItems(rc.ID, []model.ReceiptItemInput{in})
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"product": {invalidPK(*in.ProductID)}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "add receipt item", err, "receipt_id", rc.ID)
		return
	}
	writeJSON(w, http.StatusCreated, items[0])
}

func (h *ReceiptHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}

	var req struct {
		Items []model.ReceiptItemInput `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if len(req.Items) == 0 {
		errs.add("items", "At least one item is required.")
	}
	for i := range req.Items {
		validateReceiptItem(errs, fmt.Sprintf("items.%d.", i), &req.Items[i])
	}
	if errs.respond(w) {
		return
	}

	items, err := h.receiptStore.AddItems(rc.ID, req.Items)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"items": {"One or more products do not exist."}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "add receipt items", err, "receipt_id", rc.ID)
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

func (h *ReceiptHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	var patch model.ReceiptItemPatch
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
		} else if len(name) > maxReceiptText {
			errs.add("product_name", msgTooLong)
		}
	}
	if patch.Quantity != nil && !patch.Quantity.IsPositive() {
		errs.add("quantity", msgPositive)
	}
	checkNonNegative(errs, "unit_price", patch.UnitPrice)
	checkNonNegative(errs, "total_price", patch.TotalPrice)
	if errs.respond(w) {
		return
	}

	item, err := h.receiptStore.UpdateItem(rc.ID, itemID, patch)
	if errors.Is(err, store.ErrProductNotFound) {
		fieldErrors{"product": {invalidPK(*patch.ProductID)}}.respond(w)
		return
	}
	if err != nil {
		h.serverError(w, "update receipt item", err, "receipt_id", rc.ID, "item_id", itemID)
		return
	}
	if item == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ReceiptHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "item_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}

	deleted, err := h.receiptStore.DeleteItem(rc.ID, itemID)
	if err != nil {
		h.serverError(w, "delete receipt item", err, "receipt_id", rc.ID, "item_id", itemID)
		return
	}
	if !deleted {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Item deleted successfully")
}

// --- Stats ---

func (h *ReceiptHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.receiptStore.Stats(auth.UserID(r.Context()), time.Now())
	if err != nil {
		h.serverError(w, "receipt stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ReceiptHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	months, err := h.receiptStore.MonthlySpending(auth.UserID(r.Context()), time.Now())
	if err != nil {
		h.serverError(w, "monthly spending", err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}
