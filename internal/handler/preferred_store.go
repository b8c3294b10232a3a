package handler

import (
	"errors"
	"net/http"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/store"
)

func (h *CatalogHandler) ListPreferredStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.catalogStore.PreferredStores(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list preferred stores", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *CatalogHandler) AddPreferredStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoreID *int64 `json:"store_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if req.StoreID == nil {
		fieldErrors{"store_id": {msgRequired}}.respond(w)
		return
	}

	st, err := h.catalogStore.GetStore(*req.StoreID)
	if err != nil {
		h.logger.Error("get store", "store_id", *req.StoreID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if st == nil {
		fieldErrors{"store_id": {"Store does not exist."}}.respond(w)
		return
	}

	userID := auth.UserID(r.Context())
	ps, err := h.catalogStore.AddPreferredStore(userID, st.ID)
	if errors.Is(err, store.ErrAlreadyPreferred) {
		writeError(w, http.StatusBadRequest, "Store already in preferred list")
		return
	}
	if err != nil {
		h.logger.Error("add preferred store", "store_id", st.ID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	h.logger.Info("preferred store added", "user_id", userID, "store_id", st.ID)
	writeJSON(w, http.StatusCreated, ps)
}

func (h *CatalogHandler) RemovePreferredStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := parseIDParam(r, "store_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	removed, err := h.catalogStore.RemovePreferredStore(auth.UserID(r.Context()), storeID)
	if err != nil {
		h.logger.Error("remove preferred store", "store_id", storeID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Store not in preferred list")
		return
	}
	writeMessage(w, http.StatusOK, "Store removed from preferred list")
}

func (h *CatalogHandler) CheckPreferredStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := parseIDParam(r, "store_id")
	if err != nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	preferred, err := h.catalogStore.IsPreferredStore(auth.UserID(r.Context()), storeID)
	if err != nil {
		h.logger.Error("check preferred store", "store_id", storeID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_preferred": preferred})
}
