package cmd

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/tgtg/tgtg"
)

// maxConcurrentItems bounds parallel GetItem calls
const maxConcurrentItems = 4

var itemsOpts = tgtg.DefaultItemsOptions()

var (
	itemsAll     bool
	itemsSearch  string
	removeFav    bool
	favoritesOpt tgtg.FavoritesOptions
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List items around a location",
	Long: `List items around a location. By default only favorites are returned;
use --all to include every store within the radius. Results can be narrowed
with --filter or a --preset from the config file.`,
	RunE: runItems,
}

var itemCmd = &cobra.Command{
	Use:   "item ID...",
	Short: "Show one or more items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItem,
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite items",
	RunE:  runFavorites,
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite ID",
	Short: "Add an item to favorites, or remove it with --remove",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorite,
}

func init() {
	addLocationFlags := func(cmd *cobra.Command, lat, lon, radius *float64, pageSize, page *int, defaultSize int) {
		cmd.Flags().Float64Var(lat, "lat", 0, "latitude of the search origin")
		cmd.Flags().Float64Var(lon, "lon", 0, "longitude of the search origin")
		cmd.Flags().Float64Var(radius, "radius", 21, "search radius in km")
		cmd.Flags().IntVar(pageSize, "page-size", defaultSize, "number of items per page")
		cmd.Flags().IntVar(page, "page", 1, "page number")
		cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
		cmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	}

	addLocationFlags(itemsCmd, &itemsOpts.Latitude, &itemsOpts.Longitude, &itemsOpts.Radius, &itemsOpts.PageSize, &itemsOpts.Page, 20)
	itemsCmd.Flags().BoolVar(&itemsAll, "all", false, "include stores that are not favorites")
	itemsCmd.Flags().StringVar(&itemsSearch, "search", "", "search phrase")
	itemsCmd.Flags().StringSliceVar(&itemsOpts.ItemCategories, "category", nil, "item categories, e.g. BAKED_GOODS")
	itemsCmd.Flags().BoolVar(&itemsOpts.WithStockOnly, "in-stock", false, "only items with stock left")

	addLocationFlags(favoritesCmd, &favoritesOpt.Latitude, &favoritesOpt.Longitude, &favoritesOpt.Radius, &favoritesOpt.PageSize, &favoritesOpt.Page, 50)

	favoriteCmd.Flags().BoolVar(&removeFav, "remove", false, "remove from favorites")

	rootCmd.AddCommand(itemsCmd, itemCmd, favoritesCmd, favoriteCmd)
}

func runItems(cmd *cobra.Command, args []string) error {
	opts := itemsOpts
	opts.FavoritesOnly = !itemsAll
	if itemsSearch != "" {
		opts.SearchPhrase = &itemsSearch
	}

	items, err := client.GetItems(cmd.Context(), &opts)
	if err != nil {
		return err
	}

	items, err = applyFilter(cmd.Context(), items)
	if err != nil {
		return err
	}

	return printItems(items)
}

func runItem(cmd *cobra.Command, args []string) error {
	items := make([]tgtg.PickupItem, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxConcurrentItems)

	var mu sync.Mutex
	var failed []string

	for i, id := range args {
		g.Go(func() error {
			item, err := client.GetItem(ctx, id)
			if err != nil {
				logger.Warn().Err(err).Str("item_id", id).Msg("Failed to get item")
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
				return nil
			}
			items[i] = *item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if len(failed) == len(args) {
		return fmt.Errorf("failed to get %d items", len(failed))
	}

	found := make([]tgtg.PickupItem, 0, len(items))
	for _, item := range items {
		if item.Item.ItemID != "" {
			found = append(found, item)
		}
	}
	return printItems(found)
}

func runFavorites(cmd *cobra.Command, args []string) error {
	items, err := client.GetFavorites(cmd.Context(), &favoritesOpt)
	if err != nil {
		return err
	}

	items, err = applyFilter(cmd.Context(), items)
	if err != nil {
		return err
	}

	return printItems(items)
}

func runFavorite(cmd *cobra.Command, args []string) error {
	id := args[0]
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("invalid item id %q", id)
	}

	if err := client.SetFavorite(cmd.Context(), id, !removeFav); err != nil {
		return err
	}

	if removeFav {
		fmt.Printf("✓ Removed %s from favorites\n", id)
	} else {
		fmt.Printf("✓ Added %s to favorites\n", id)
	}
	return nil
}
