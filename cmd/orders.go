package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/tgtg/tgtg"
)

var (
	orderCount  int
	historyOpts  tgtg.InactiveOptions
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Reserve, inspect and cancel orders",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create ITEM_ID",
	Short: "Reserve an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderCreate,
}

var orderStatusCmd = &cobra.Command{
	Use:   "status ORDER_ID",
	Short: "Show the state of an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderStatus,
}

var orderAbortCmd = &cobra.Command{
	Use:   "abort ORDER_ID",
	Short: "Cancel an order that has not been paid",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderAbort,
}

var orderActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List open orders",
	RunE:  runOrderActive,
}

var orderHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past orders",
	RunE:  runOrderHistory,
}

func init() {
	orderCreateCmd.Flags().IntVarP(&orderCount, "count", "n", 1, "number of items to reserve")
	orderHistoryCmd.Flags().IntVar(&historyOpts.Page, "page", 0, "page number, starting at 0")
	orderHistoryCmd.Flags().IntVar(&historyOpts.PageSize, "page-size", 20, "number of orders per page")

	orderCmd.AddCommand(orderCreateCmd, orderStatusCmd, orderAbortCmd, orderActiveCmd, orderHistoryCmd)
	rootCmd.AddCommand(orderCmd)
}

func runOrderCreate(cmd *cobra.Command, args []string) error {
	order, err := client.CreateOrder(cmd.Context(), args[0], orderCount)
	if err != nil {
		return fmt.Errorf("failed to reserve item %s: %w", args[0], err)
	}

	if jsonOutput {
		return printJSON(order)
	}

	fmt.Printf("✓ Reserved %d × item %s, order %s (%s)\n", orderCount, args[0], order.ID, order.State)
	fmt.Println("Pay for the order in the app before the reservation expires.")
	return nil
}

func runOrderStatus(cmd *cobra.Command, args []string) error {
	status, err := client.GetOrderStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(status)
	}

	fmt.Printf("Order %s: %s\n", status.ID, status.State)
	return nil
}

func runOrderAbort(cmd *cobra.Command, args []string) error {
	if err := client.AbortOrder(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", args[0], err)
	}

	fmt.Printf("✓ Cancelled order %s\n", args[0])
	return nil
}

func runOrderActive(cmd *cobra.Command, args []string) error {
	orders, err := client.GetActive(cmd.Context())
	if err != nil {
		return err
	}
	return printOrders(orders)
}

func runOrderHistory(cmd *cobra.Command, args []string) error {
	orders, err := client.GetInactive(cmd.Context(), &historyOpts)
	if err != nil {
		return err
	}
	return printOrders(orders)
}
