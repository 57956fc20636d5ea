package transfer

import (
	"fmt"
	"strconv"
	"strings"

	"storesync/internal/app/client"
	"storesync/internal/domain/transfer"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	createFrom     string
	createTo       string
	createPriority string
	createItems    []string
	createNotes    string
	createSubmit   bool
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать заявку на перемещение",
	Long: `Создает заявку на перемещение товара между магазинами.

Позиции задаются флагом --item в формате ТОВАР:КОЛИЧЕСТВО[:ЦЕНА]:
  storesync transfer create --from STORE-A --to STORE-B --item PROD-1:25:10.50

Без флага --submit заявка остается черновиком.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		items, err := parseItems(createItems)
		if err != nil {
			return err
		}

		tr, err := app.CreateTransfer(cmd.Context(), transfer.CreateRequest{
			FromStoreID: createFrom,
			ToStoreID:   createTo,
			Priority:    transfer.Priority(createPriority),
			Items:       items,
			RequestedBy: app.Actor(),
			Notes:       createNotes,
			Submit:      createSubmit,
		})
		if err != nil {
			return fmt.Errorf("ошибка создания заявки: %w", err)
		}

		color.Green("✓ Заявка %s создана", tr.TransferNumber)
		fmt.Printf("ID:     %s\n", tr.ID)
		fmt.Printf("Статус: %s\n", colorStatus(tr.Status))

		return nil
	},
}

func parseItems(raw []string) ([]transfer.ItemRequest, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("укажите хотя бы одну позицию через --item")
	}

	items := make([]transfer.ItemRequest, 0, len(raw))
	for _, spec := range raw {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("некорректная позиция %q, ожидается ТОВАР:КОЛИЧЕСТВО[:ЦЕНА]", spec)
		}

		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("некорректное количество в позиции %q", spec)
		}

		item := transfer.ItemRequest{ProductID: parts[0], Quantity: qty}
		if len(parts) == 3 {
			cost, err := decimal.NewFromString(parts[2])
			if err != nil {
				return nil, fmt.Errorf("некорректная цена в позиции %q", spec)
			}
			item.UnitCost = cost
		}

		items = append(items, item)
	}

	return items, nil
}

func init() {
	CreateCmd.Flags().StringVar(&createFrom, "from", "", "магазин-отправитель")
	CreateCmd.Flags().StringVar(&createTo, "to", "", "магазин-получатель")
	CreateCmd.Flags().StringVar(&createPriority, "priority", "NORMAL", "приоритет (LOW, NORMAL, HIGH, URGENT)")
	CreateCmd.Flags().StringArrayVar(&createItems, "item", nil, "позиция в формате ТОВАР:КОЛИЧЕСТВО[:ЦЕНА]")
	CreateCmd.Flags().StringVar(&createNotes, "notes", "", "комментарий к заявке")
	CreateCmd.Flags().BoolVar(&createSubmit, "submit", false, "сразу отправить на согласование")
	CreateCmd.MarkFlagRequired("from")
	CreateCmd.MarkFlagRequired("to")
}
