package transfer

import (
	"fmt"
	"strconv"
	"strings"

	"storesync/internal/app/client"
	"storesync/internal/domain/transfer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	approveVersion int
	approveItems   []string
	rejectVersion  int
	rejectReason   string
	modifyMessage  string
)

var ApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Согласовать заявку",
	Long: `Согласует заявку и резервирует товар у отправителя.

Согласованные количества задаются флагом --item ТОВАР:КОЛИЧЕСТВО[:причина].
Количество можно уменьшить относительно запрошенного, но не увеличить.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		items, err := parseApprovedItems(approveItems)
		if err != nil {
			return err
		}

		tr, err := app.ApproveTransfer(cmd.Context(), args[0], app.Actor(), approveVersion, items)
		if err != nil {
			return fmt.Errorf("ошибка согласования: %w", err)
		}

		color.Green("✓ Заявка %s согласована", tr.TransferNumber)
		return nil
	},
}

var RejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Отклонить заявку",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		tr, err := app.RejectTransfer(cmd.Context(), args[0], app.Actor(), rejectVersion, rejectReason)
		if err != nil {
			return fmt.Errorf("ошибка отклонения: %w", err)
		}

		color.Yellow("Заявка %s отклонена", tr.TransferNumber)
		return nil
	},
}

var ModifyCmd = &cobra.Command{
	Use:   "modify <id>",
	Short: "Запросить доработку заявки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		tr, err := app.RequestModification(cmd.Context(), args[0], app.Actor(), modifyMessage)
		if err != nil {
			return fmt.Errorf("ошибка запроса доработки: %w", err)
		}

		color.Yellow("По заявке %s запрошена доработка", tr.TransferNumber)
		return nil
	},
}

func parseApprovedItems(raw []string) ([]transfer.ApprovedItem, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("укажите согласованные позиции через --item")
	}

	items := make([]transfer.ApprovedItem, 0, len(raw))
	for _, spec := range raw {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("некорректная позиция %q, ожидается ТОВАР:КОЛИЧЕСТВО[:причина]", spec)
		}

		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("некорректное количество в позиции %q", spec)
		}

		item := transfer.ApprovedItem{ProductID: parts[0], Quantity: qty}
		if len(parts) == 3 {
			item.Reason = parts[2]
		}

		items = append(items, item)
	}

	return items, nil
}

func init() {
	ApproveCmd.Flags().IntVar(&approveVersion, "version", 0, "ожидаемая версия заявки")
	ApproveCmd.Flags().StringArrayVar(&approveItems, "item", nil, "позиция в формате ТОВАР:КОЛИЧЕСТВО[:причина]")
	ApproveCmd.MarkFlagRequired("version")

	RejectCmd.Flags().IntVar(&rejectVersion, "version", 0, "ожидаемая версия заявки")
	RejectCmd.Flags().StringVar(&rejectReason, "reason", "", "причина отклонения")
	RejectCmd.MarkFlagRequired("version")
	RejectCmd.MarkFlagRequired("reason")

	ModifyCmd.Flags().StringVar(&modifyMessage, "message", "", "замечания для запрашивающего")
	ModifyCmd.MarkFlagRequired("message")
}
