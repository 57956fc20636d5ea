package transfer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"storesync/internal/app/client"
	"storesync/internal/domain/transfer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	moveVersion     int
	moveReason      string
	moveLocation    string
	moveNotes       string
	receiveVersion  int
	receiveItems    []string
	trackingNumber  string
	trackingETA     string
	trackingVersion int
)

var MoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Перевести заявку в следующий статус",
	Long: `Переводит заявку по жизненному циклу: PICKING, PACKED, IN_TRANSIT,
DELIVERED, CANCELLED. Для отмены обязательна причина (--reason).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		tr, err := app.MoveTransfer(cmd.Context(), args[0], strings.ToUpper(args[1]),
			app.Actor(), moveVersion, moveReason, moveLocation, moveNotes, nil)
		if err != nil {
			return fmt.Errorf("ошибка перевода статуса: %w", err)
		}

		color.Green("✓ Заявка %s: %s", tr.TransferNumber, tr.Status)
		return nil
	},
}

var ReceiveCmd = &cobra.Command{
	Use:   "receive <id>",
	Short: "Подтвердить приемку товара",
	Long: `Фиксирует принятые количества и закрывает заявку. Если принято
меньше отгруженного, заявка получает статус PARTIAL.

Позиции задаются флагом --item ТОВАР:КОЛИЧЕСТВО.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		items, err := parseReceivedItems(receiveItems)
		if err != nil {
			return err
		}

		tr, err := app.MoveTransfer(cmd.Context(), args[0], string(transfer.StatusReceived),
			app.Actor(), receiveVersion, "", "", "", items)
		if err != nil {
			return fmt.Errorf("ошибка приемки: %w", err)
		}

		if tr.Status == transfer.StatusPartial {
			color.Yellow("Заявка %s принята частично", tr.TransferNumber)
		} else {
			color.Green("✓ Заявка %s принята полностью", tr.TransferNumber)
		}

		return nil
	},
}

var TrackingCmd = &cobra.Command{
	Use:   "tracking <id>",
	Short: "Указать трек-номер отправления",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		var eta *time.Time
		if trackingETA != "" {
			ts, err := time.Parse("2006-01-02", trackingETA)
			if err != nil {
				return fmt.Errorf("некорректная дата доставки, ожидается ГГГГ-ММ-ДД: %w", err)
			}
			eta = &ts
		}

		tr, err := app.SetTracking(cmd.Context(), args[0], trackingNumber, eta, trackingVersion)
		if err != nil {
			return fmt.Errorf("ошибка сохранения трек-номера: %w", err)
		}

		color.Green("✓ Трек-номер %s привязан к заявке %s", tr.TrackingNumber, tr.TransferNumber)
		return nil
	},
}

func parseReceivedItems(raw []string) ([]transfer.ReceivedItem, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("укажите принятые позиции через --item")
	}

	items := make([]transfer.ReceivedItem, 0, len(raw))
	for _, spec := range raw {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("некорректная позиция %q, ожидается ТОВАР:КОЛИЧЕСТВО", spec)
		}

		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("некорректное количество в позиции %q", spec)
		}

		items = append(items, transfer.ReceivedItem{ProductID: parts[0], Quantity: qty})
	}

	return items, nil
}

func init() {
	MoveCmd.Flags().IntVar(&moveVersion, "version", 0, "ожидаемая версия заявки")
	MoveCmd.Flags().StringVar(&moveReason, "reason", "", "причина (обязательна для CANCELLED)")
	MoveCmd.Flags().StringVar(&moveLocation, "location", "", "текущая точка маршрута")
	MoveCmd.Flags().StringVar(&moveNotes, "notes", "", "комментарий")
	MoveCmd.MarkFlagRequired("version")

	ReceiveCmd.Flags().IntVar(&receiveVersion, "version", 0, "ожидаемая версия заявки")
	ReceiveCmd.Flags().StringArrayVar(&receiveItems, "item", nil, "позиция в формате ТОВАР:КОЛИЧЕСТВО")
	ReceiveCmd.MarkFlagRequired("version")

	TrackingCmd.Flags().StringVar(&trackingNumber, "number", "", "трек-номер")
	TrackingCmd.Flags().StringVar(&trackingETA, "eta", "", "ожидаемая дата доставки (ГГГГ-ММ-ДД)")
	TrackingCmd.Flags().IntVar(&trackingVersion, "version", 0, "ожидаемая версия заявки")
	TrackingCmd.MarkFlagRequired("number")
	TrackingCmd.MarkFlagRequired("version")
}
