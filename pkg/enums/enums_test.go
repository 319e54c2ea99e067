package enums

import "testing"

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseApprovalStatus("published"); err == nil {
		t.Fatal("expected error for unknown approval status")
	}
	if _, err := ParsePermission("properties:delete"); err == nil {
		t.Fatal("expected error for unknown permission")
	}
	if got, err := ParseLeadStatus("visit_scheduled"); err != nil || got != LeadVisitScheduled {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
}

func TestOperationSupportsDeal(t *testing.T) {
	cases := []struct {
		op   OperationType
		deal DealType
		want bool
	}{
		{OperationSale, DealSale, true},
		{OperationSale, DealRent, false},
		{OperationRent, DealRent, true},
		{OperationSaleAndRent, DealSale, true},
		{OperationSaleAndRent, DealRent, true},
		{OperationSaleAndRent, DealType("lease"), false},
	}
	for _, tc := range cases {
		if got := tc.op.Supports(tc.deal); got != tc.want {
			t.Fatalf("%s supports %s: want %v got %v", tc.op, tc.deal, tc.want, got)
		}
	}
}

func TestCommissionTierRankOrder(t *testing.T) {
	if !(CommissionTierLead.Rank() > CommissionTierUser.Rank() &&
		CommissionTierUser.Rank() > CommissionTierRole.Rank() &&
		CommissionTierRole.Rank() > CommissionTierDefault.Rank()) {
		t.Fatal("tier ranks out of order")
	}
	if CommissionTier("other").Rank() != 0 {
		t.Fatal("unknown tier should rank zero")
	}
}

func TestPermissionCatalogIsCopy(t *testing.T) {
	catalog := PermissionCatalog()
	catalog[0] = "mutated"
	if PermissionCatalog()[0] == "mutated" {
		t.Fatal("catalog should not be mutable through the returned slice")
	}
}
