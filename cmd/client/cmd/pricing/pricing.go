package pricing

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"storesync/internal/app/client"
	"storesync/internal/domain/pricing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	updatePrice       string
	updateVersion     int
	updateAdjustments []string
	showLocal         bool
)

var PricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Управление ценами",
}

var ShowCmd = &cobra.Command{
	Use:   "show <productId>",
	Short: "Показать цену товара",
	Long: `Показывает ценовую запись с сервера: базовую цену, поправки магазинов
и расчетные локальные цены. С флагом --local читает из локального зеркала.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if showLocal {
			p, err := app.Mirror().GetPrice(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Товар:     %s\n", p.ProductID)
			fmt.Printf("Цена:      %s\n", p.BasePrice)
			fmt.Printf("Версия:    %d\n", p.Version)
			fmt.Printf("Обновлено: %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		}

		rec, err := app.GetPricing(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка получения цены: %w", err)
		}

		printRecord(rec)
		return nil
	},
}

var UpdateCmd = &cobra.Command{
	Use:   "update <productId>",
	Short: "Обновить базовую цену и поправки магазинов",
	Long: `Обновляет ценовую запись и публикует событие всем магазинам сети.

Поправки задаются флагом --adjust МАГАЗИН:ПРОЦЕНТ[:причина], процент
в пределах от -50 до 100:
  storesync pricing update PROD-1 --price 19.99 --adjust STORE-B:7.5:аренда --version 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		base, err := decimal.NewFromString(updatePrice)
		if err != nil {
			return fmt.Errorf("некорректная цена %q", updatePrice)
		}

		adjustments, err := parseAdjustments(updateAdjustments)
		if err != nil {
			return err
		}

		rec, err := app.UpdatePricing(cmd.Context(), args[0], base, adjustments, updateVersion)
		if err != nil {
			return fmt.Errorf("ошибка обновления цены: %w", err)
		}

		color.Green("✓ Цена товара %s обновлена (версия %d)", rec.ProductID, rec.Version)
		return nil
	},
}

var SyncCmd = &cobra.Command{
	Use:   "sync <productId>...",
	Short: "Повторно опубликовать цены",
	Long:  `Переотправляет текущие ценовые записи всем магазинам сети.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		synced, err := app.SyncPricing(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("ошибка публикации цен: %w", err)
		}

		color.Green("✓ Опубликовано цен: %d", synced)
		return nil
	},
}

func printRecord(rec *pricing.PricingRecord) {
	fmt.Printf("Товар:         %s\n", rec.ProductID)
	fmt.Printf("Базовая цена:  %s\n", rec.BasePrice.StringFixed(2))
	fmt.Printf("Версия:        %d\n", rec.Version)
	fmt.Printf("Действует с:   %s\n", rec.EffectiveDate.Format("2006-01-02"))
	if rec.SyncedAt != nil {
		fmt.Printf("Опубликовано:  %s\n", rec.SyncedAt.Format("2006-01-02 15:04:05"))
	}

	if len(rec.StoreAdjustments) > 0 {
		fmt.Println("\nЛокальные цены:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  МАГАЗИН\tПОПРАВКА\tЦЕНА\tПРИЧИНА")
		for _, adj := range rec.StoreAdjustments {
			fmt.Fprintf(w, "  %s\t%s%%\t%s\t%s\n",
				adj.StoreID, adj.AdjustmentPercentage.String(),
				rec.AdjustedPrice(adj.StoreID).StringFixed(2), adj.Reason)
		}
		w.Flush()

		fmt.Printf("\nРазброс цен: %s%%\n", rec.Variance().StringFixed(2))
	}
}

func parseAdjustments(raw []string) ([]pricing.StoreAdjustment, error) {
	adjustments := make([]pricing.StoreAdjustment, 0, len(raw))
	for _, spec := range raw {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("некорректная поправка %q, ожидается МАГАЗИН:ПРОЦЕНТ[:причина]", spec)
		}

		pct, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("некорректный процент в поправке %q", spec)
		}

		adj := pricing.StoreAdjustment{StoreID: parts[0], AdjustmentPercentage: pct}
		if len(parts) == 3 {
			adj.Reason = parts[2]
		}

		adjustments = append(adjustments, adj)
	}

	return adjustments, nil
}

func init() {
	ShowCmd.Flags().BoolVar(&showLocal, "local", false, "читать из локального зеркала")

	UpdateCmd.Flags().StringVar(&updatePrice, "price", "", "базовая цена")
	UpdateCmd.Flags().IntVar(&updateVersion, "version", 0, "ожидаемая версия (0 для новой записи)")
	UpdateCmd.Flags().StringArrayVar(&updateAdjustments, "adjust", nil, "поправка в формате МАГАЗИН:ПРОЦЕНТ[:причина]")
	UpdateCmd.MarkFlagRequired("price")
}
