package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/s0up4200/tgtg/tgtg"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p tgtg.Price) string {
	return fmt.Sprintf("%.*f %s", p.Decimals, p.Decimal(), p.Code)
}

func formatPickup(iv *tgtg.Interval) string {
	if iv == nil {
		return "no pickup window"
	}
	start, end := iv.Start.Local(), iv.End.Local()
	if start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s %s-%s", start.Format("Mon 02 Jan"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon 02 Jan 15:04"), end.Format("Mon 02 Jan 15:04"))
}

func printItems(items []tgtg.PickupItem) error {
	if jsonOutput {
		return printJSON(items)
	}

	if len(items) == 0 {
		fmt.Println("No items found matching the filter criteria.")
		return nil
	}

	fmt.Printf("\nFound %d items:\n", len(items))
	fmt.Println(strings.Repeat("-", 80))

	for _, item := range items {
		printItem(item)
	}
	return nil
}

func printItem(item tgtg.PickupItem) {
	name := item.DisplayName
	if name == "" {
		name = item.Store.StoreName
	}
	fmt.Printf("• %s [%s]", name, item.Item.ItemID)
	if item.Favorite {
		fmt.Printf(" ★")
	}
	fmt.Println()
	fmt.Printf("  Available: %d", item.ItemsAvailable)
	if !item.InSalesWindow {
		fmt.Printf(" (not on sale)")
	}
	fmt.Println()
	fmt.Printf("  Price: %s (value %s)\n", formatPrice(item.Item.PriceIncludingTaxes), formatPrice(item.Item.ValueIncludingTaxes))
	fmt.Printf("  Pickup: %s\n", formatPickup(item.PickupInterval))
	if item.Distance > 0 {
		fmt.Printf("  Distance: %.1f km\n", item.Distance)
	}
}

func printOrders(resp *tgtg.OrdersResponse) error {
	if jsonOutput {
		return printJSON(resp)
	}

	if len(resp.Orders) == 0 {
		fmt.Println("No orders.")
		return nil
	}

	for _, order := range resp.Orders {
		fmt.Printf("• %s  %-10s %s", order.ID, order.State, order.StoreName)
		if order.ItemName != "" {
			fmt.Printf(" - %s", order.ItemName)
		}
		fmt.Println()
		fmt.Printf("  Quantity: %d, total %s\n", order.OrderLine.Quantity, formatPrice(order.OrderLine.TotalPriceIncludingTaxes))
		fmt.Printf("  Pickup: %s\n", formatPickup(order.PickupInterval))
	}
	if resp.HasMore {
		fmt.Println("(more orders available, use --page)")
	}
	return nil
}
