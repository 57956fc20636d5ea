package transfer

import (
	"fmt"
	"os"
	"text/tabwriter"

	"storesync/internal/app/client"
	"storesync/internal/domain/transfer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listStore  string
	listStatus string
)

var TransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Управление перемещениями товара между магазинами",
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список заявок на перемещение",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		transfers, err := app.ListTransfers(cmd.Context(), listStore, listStatus)
		if err != nil {
			return fmt.Errorf("ошибка получения списка заявок: %w", err)
		}

		if len(transfers) == 0 {
			fmt.Println("Заявки не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "НОМЕР\tОТКУДА\tКУДА\tСТАТУС\tПОЗИЦИЙ\tВЕРСИЯ\tID")
		for _, tr := range transfers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				tr.TransferNumber, tr.FromStoreID, tr.ToStoreID,
				colorStatus(tr.Status), len(tr.Items), tr.Version, tr.ID)
		}

		return w.Flush()
	},
}

var GetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Подробности заявки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		tr, err := app.GetTransfer(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка получения заявки: %w", err)
		}

		printTransfer(tr)
		return nil
	},
}

func printTransfer(tr *transfer.TransferRequest) {
	fmt.Printf("Заявка:    %s (%s)\n", tr.TransferNumber, tr.ID)
	fmt.Printf("Маршрут:   %s → %s\n", tr.FromStoreID, tr.ToStoreID)
	fmt.Printf("Статус:    %s\n", colorStatus(tr.Status))
	fmt.Printf("Приоритет: %s\n", tr.Priority)
	fmt.Printf("Версия:    %d\n", tr.Version)
	if tr.TrackingNumber != "" {
		fmt.Printf("Трек:      %s\n", tr.TrackingNumber)
	}

	fmt.Println("\nПозиции:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ТОВАР\tЗАПРОШЕНО\tСОГЛАСОВАНО\tОТГРУЖЕНО\tПРИНЯТО")
	for _, item := range tr.Items {
		fmt.Fprintf(w, "  %s\t%d\t%d\t%d\t%d\n",
			item.ProductID, item.QuantityRequested, item.QuantityApproved,
			item.QuantityShipped, item.QuantityReceived)
	}
	w.Flush()

	if len(tr.Tracking) > 0 {
		fmt.Println("\nИстория:")
		for _, entry := range tr.Tracking {
			fmt.Printf("  %s  %s  %s", entry.At.Format("2006-01-02 15:04"), entry.Status, entry.Actor)
			if entry.Notes != "" {
				fmt.Printf("  (%s)", entry.Notes)
			}
			fmt.Println()
		}
	}
}

func colorStatus(status transfer.Status) string {
	switch status {
	case transfer.StatusDelivered, transfer.StatusReceived:
		return color.GreenString(string(status))
	case transfer.StatusRejected, transfer.StatusCancelled:
		return color.RedString(string(status))
	case transfer.StatusPartial:
		return color.YellowString(string(status))
	default:
		return color.CyanString(string(status))
	}
}

func init() {
	ListCmd.Flags().StringVar(&listStore, "store", "", "отправитель или получатель")
	ListCmd.Flags().StringVar(&listStatus, "status", "", "фильтр по статусу")
}
