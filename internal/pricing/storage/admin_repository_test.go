package storage

import (
	"context"
	"testing"
)

func TestAdminListIncludesSuperAdmin(t *testing.T) {
	db := newTestDB(t)
	repo := NewAdminRepository(db, 111)
	ctx := context.Background()

	if err := repo.Add(ctx, 222, "manager"); err != nil {
		t.Fatal(err)
	}

	admins, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 2 {
		t.Fatalf("admins = %+v, want stored admin plus super admin", admins)
	}

	ids, err := repo.ListChatIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := map[int64]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[111] || !found[222] {
		t.Fatalf("chat ids = %v, want both 111 and 222", ids)
	}
}

func TestAdminAddUpsertsUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewAdminRepository(db, 0)
	ctx := context.Background()

	if err := repo.Add(ctx, 222, "old"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Add(ctx, 222, "new"); err != nil {
		t.Fatal(err)
	}

	admins, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 1 || admins[0].Username != "new" {
		t.Fatalf("admins = %+v, want single row with updated username", admins)
	}
}

func TestAdminRemove(t *testing.T) {
	db := newTestDB(t)
	repo := NewAdminRepository(db, 111)
	ctx := context.Background()

	if err := repo.Add(ctx, 111, "boss"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Add(ctx, 222, "manager"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Remove(ctx, 111); err != ErrSuperAdminRemoval {
		t.Fatalf("removing super admin: err = %v, want ErrSuperAdminRemoval", err)
	}
	if err := repo.Remove(ctx, 222); err != nil {
		t.Fatal(err)
	}
	// Повторное удаление — не ошибка.
	if err := repo.Remove(ctx, 222); err != nil {
		t.Fatal(err)
	}

	ids, err := repo.ListChatIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 111 {
		t.Fatalf("chat ids after removal = %v, want [111]", ids)
	}
}
