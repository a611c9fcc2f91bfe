package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/config"
	"github.com/spendview-dev/spendview/internal/dataset"
)

func newMapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map [merchant-key] [category]",
		Short: "Inspect or pin merchant category mappings",
		Long: `With no arguments, lists merchants in the dataset that have no pinned
category. With one argument, shows the mapping for that merchant key. With
two, pins the merchant to the given budget category.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			switch len(args) {
			case 0:
				return listUnmapped(cfg)
			case 1:
				return showMapping(cfg, args[0])
			default:
				return pinMapping(cfg, args[0], args[1])
			}
		},
	}

	return cmd
}

func listUnmapped(cfg *config.Config) error {
	store, err := category.LoadStore(cfg.Data.Mappings)
	if err != nil {
		return err
	}
	txns, err := dataset.Load(cfg.Data.Dataset)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var keys []string
	for _, t := range txns {
		if seen[t.MerchantKey] {
			continue
		}
		seen[t.MerchantKey] = true
		if cat, ok := store.Get(t.MerchantKey); !ok || cat == category.Default {
			keys = append(keys, t.MerchantKey)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		fmt.Println("All merchants are mapped.")
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func showMapping(cfg *config.Config, key string) error {
	store, err := category.LoadStore(cfg.Data.Mappings)
	if err != nil {
		return err
	}
	cat, ok := store.Get(key)
	if !ok {
		return fmt.Errorf("no mapping for %q", key)
	}
	fmt.Printf("%s -> %s\n", key, cat)
	return nil
}

func pinMapping(cfg *config.Config, key, cat string) error {
	store, err := category.LoadStore(cfg.Data.Mappings)
	if err != nil {
		return err
	}
	mapper := category.NewMapper(store)
	if err := mapper.Update(key, cat); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", key, cat)
	return nil
}
