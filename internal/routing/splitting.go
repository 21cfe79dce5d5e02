package routing

import (
	"sort"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// SplitOrder partitions the order's line items into one group per chosen
// vendor. Pure function, no retries: a line without a selection is an
// upstream defect and fails with IncompleteAllocationError.
//
// One vendor per product line is the base policy; a single line is never
// divided across vendors. Before returning, the allocation invariant is
// rechecked: every input line appears in exactly one group with its full
// quantity.
func SplitOrder(req models.RoutingRequest, selections []models.VendorSelection) ([]models.SplitGroup, error) {
	byProduct := make(map[string]models.VendorSelection, len(selections))
	for _, sel := range selections {
		byProduct[sel.ProductID] = sel
	}

	var missing []string
	groups := map[string]*models.SplitGroup{}
	for _, line := range req.Items {
		sel, ok := byProduct[line.ProductID]
		if !ok || sel.VendorID == "" || sel.Quantity != line.Quantity {
			missing = append(missing, line.ProductID)
			continue
		}
		g, ok := groups[sel.VendorID]
		if !ok {
			g = &models.SplitGroup{VendorID: sel.VendorID}
			groups[sel.VendorID] = g
		}
		g.Items = append(g.Items, models.SplitItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: sel.UnitPrice,
		})
		g.Subtotal += sel.UnitPrice * float64(line.Quantity)
	}
	if len(missing) > 0 {
		return nil, errors.NewIncompleteAllocationError(req.OrderID, missing)
	}

	out := make([]models.SplitGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })

	if err := checkAllocation(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkAllocation verifies the multiset of (productId, quantity) across
// groups equals the request's line items exactly.
func checkAllocation(req models.RoutingRequest, groups []models.SplitGroup) error {
	want := map[string]int{}
	for _, line := range req.Items {
		want[line.ProductID] += line.Quantity
	}

	got := map[string]int{}
	for _, g := range groups {
		for _, item := range g.Items {
			got[item.ProductID] += item.Quantity
		}
	}

	var bad []string
	for productID, qty := range want {
		if got[productID] != qty {
			bad = append(bad, productID)
		}
	}
	for productID := range got {
		if _, ok := want[productID]; !ok {
			bad = append(bad, productID)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return errors.NewIncompleteAllocationError(req.OrderID, bad)
	}
	return nil
}
