package service

import (
	"context"
	"errors"
	"testing"

	"github.com/xscan/xscan/internal/model"
)

func TestBankAccountService_Create(t *testing.T) {
	store := newMemStore()
	svc := NewBankAccountService(store, plainBox{}, 2)
	ctx := context.Background()
	u := store.addUser("streamer", model.RoleStreamer, 0)

	acct, err := svc.Create(ctx, u.ID, BankAccountInput{
		BankName:      " First Bank ",
		AccountHolder: "Stream Er",
		AccountNumber: "1234 5678-9012",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if acct.BankName != "First Bank" || acct.AccountLast4 != "9012" {
		t.Errorf("unexpected account %+v", acct)
	}
	if acct.AccountNumberEnc != "enc:123456789012" {
		t.Errorf("account number should be stored encrypted, got %q", acct.AccountNumberEnc)
	}

	accts, err := svc.List(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(accts) != 1 || !accts[0].IsDefault {
		t.Errorf("first account should become the default: %+v", accts)
	}

	tests := []struct {
		name string
		in   BankAccountInput
	}{
		{"letters", BankAccountInput{BankName: "B", AccountHolder: "H", AccountNumber: "12ab5678"}},
		{"too short", BankAccountInput{BankName: "B", AccountHolder: "H", AccountNumber: "12345"}},
		{"too long", BankAccountInput{BankName: "B", AccountHolder: "H", AccountNumber: "12345678901234567890123456789012345"}},
		{"missing bank", BankAccountInput{AccountHolder: "H", AccountNumber: "12345678"}},
		{"missing holder", BankAccountInput{BankName: "B", AccountNumber: "12345678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, u.ID, tt.in); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := svc.Create(ctx, u.ID, BankAccountInput{BankName: "B", AccountHolder: "H", AccountNumber: "87654321"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, u.ID, BankAccountInput{BankName: "C", AccountHolder: "H", AccountNumber: "11112222"}); !errors.Is(err, ErrBankAccountLimit) {
		t.Errorf("expected ErrBankAccountLimit, got %v", err)
	}
}

func TestBankAccountService_Ownership(t *testing.T) {
	store := newMemStore()
	svc := NewBankAccountService(store, plainBox{}, 5)
	ctx := context.Background()
	owner := store.addUser("owner", model.RoleStreamer, 0)
	intruder := store.addUser("intruder", model.RoleStreamer, 0)

	first, err := svc.Create(ctx, owner.ID, BankAccountInput{BankName: "A", AccountHolder: "O", AccountNumber: "11111111"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(ctx, owner.ID, BankAccountInput{BankName: "B", AccountHolder: "O", AccountNumber: "22222222"})
	if err != nil {
		t.Fatal(err)
	}

	name := "Renamed"
	if _, err := svc.Update(ctx, intruder.ID, first.ID, BankAccountUpdate{BankName: &name}); !errors.Is(err, ErrBankAccountNotFound) {
		t.Errorf("update by non-owner: expected ErrBankAccountNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, intruder.ID, first.ID); !errors.Is(err, ErrBankAccountNotFound) {
		t.Errorf("delete by non-owner: expected ErrBankAccountNotFound, got %v", err)
	}

	updated, err := svc.Update(ctx, owner.ID, first.ID, BankAccountUpdate{BankName: &name})
	if err != nil {
		t.Fatal(err)
	}
	if updated.BankName != "Renamed" || updated.AccountHolder != "O" {
		t.Errorf("unexpected update result %+v", updated)
	}

	if _, err := svc.SetDefault(ctx, owner.ID, second.ID); err != nil {
		t.Fatal(err)
	}
	accts, err := svc.List(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	defaults := 0
	for _, a := range accts {
		if a.IsDefault {
			defaults++
			if a.ID != second.ID {
				t.Errorf("wrong default account %s", a.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default, got %d", defaults)
	}

	if err := svc.Delete(ctx, owner.ID, first.ID); err != nil {
		t.Fatal(err)
	}
}
