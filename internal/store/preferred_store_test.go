package store

import (
	"errors"
	"testing"
)

func TestPreferredStores(t *testing.T) {
	f := setupShoppingTestDB(t)
	hilo := mustStore(t, f.catalog, "Hi-Lo")
	mega := mustStore(t, f.catalog, "MegaMart")

	ps, err := f.catalog.AddPreferredStore(f.userID, hilo.ID)
	if err != nil {
		t.Fatalf("add preferred: %v", err)
	}
	if ps.StoreID != hilo.ID || ps.StoreName != "Hi-Lo" || ps.StoreLocation != "Kingston" {
		t.Errorf("unexpected entry %+v", ps)
	}
	if ps.AddedAt.IsZero() {
		t.Error("added_at not set")
	}

	if _, err := f.catalog.AddPreferredStore(f.userID, hilo.ID); !errors.Is(err, ErrAlreadyPreferred) {
		t.Errorf("duplicate err = %v, want ErrAlreadyPreferred", err)
	}
	if _, err := f.catalog.AddPreferredStore(f.userID, mega.ID); err != nil {
		t.Fatalf("add second: %v", err)
	}

	list, err := f.catalog.PreferredStores(f.userID)
	if err != nil {
		t.Fatalf("list preferred: %v", err)
	}
	if len(list) != 2 || list[0].StoreID != hilo.ID || list[1].StoreID != mega.ID {
		t.Errorf("preferred = %+v", list)
	}

	other := createTestUser(t, NewUserStore(f.lists.db), "bob")
	if got, _ := f.catalog.PreferredStores(other); len(got) != 0 {
		t.Errorf("other user sees %d preferred stores", len(got))
	}
	if ok, _ := f.catalog.IsPreferredStore(other, hilo.ID); ok {
		t.Error("preference leaked to another user")
	}

	if ok, err := f.catalog.IsPreferredStore(f.userID, hilo.ID); err != nil || !ok {
		t.Errorf("IsPreferredStore = %v, %v", ok, err)
	}
	removed, err := f.catalog.RemovePreferredStore(f.userID, hilo.ID)
	if err != nil || !removed {
		t.Fatalf("remove = %v, %v", removed, err)
	}
	if removed, _ := f.catalog.RemovePreferredStore(f.userID, hilo.ID); removed {
		t.Error("second remove should report nothing removed")
	}
	if ok, _ := f.catalog.IsPreferredStore(f.userID, hilo.ID); ok {
		t.Error("store still preferred after removal")
	}
}

func TestAddPreferredStoreUnknownStore(t *testing.T) {
	f := setupShoppingTestDB(t)
	if _, err := f.catalog.AddPreferredStore(f.userID, 999); err == nil {
		t.Error("expected a foreign key error for an unknown store")
	}
}
