package events

import (
	"fmt"
	"os"
	"text/tabwriter"

	"storesync/internal/app/client"
	"storesync/internal/domain/event"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listLimit  int
)

var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Журнал событий синхронизации",
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Последние события журнала",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		events, err := app.ListEvents(cmd.Context(), listStatus, listLimit)
		if err != nil {
			return fmt.Errorf("ошибка получения журнала: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("События не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tТИП\tСУЩНОСТЬ\tСТАТУС\tПОПЫТОК\tID")
		for _, evt := range events {
			fmt.Fprintf(w, "%d\t%s\t%s/%s\t%s\t%d\t%s\n",
				evt.Seq, evt.Type, evt.EntityType, evt.EntityID,
				colorStatus(evt.Status), evt.AttemptCount, evt.ID)
		}

		return w.Flush()
	},
}

var RetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Вернуть событие в очередь доставки",
	Long:  `Сбрасывает счетчик попыток события со статусом FAILED и ставит его в очередь заново.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		evt, err := app.RetryEvent(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка перезапуска события: %w", err)
		}

		color.Green("✓ Событие %d поставлено в очередь", evt.Seq)
		return nil
	},
}

var AbandonCmd = &cobra.Command{
	Use:   "abandon <id>",
	Short: "Окончательно отказаться от доставки события",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		evt, err := app.AbandonEvent(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка отмены события: %w", err)
		}

		color.Yellow("Событие %d помечено недоставляемым", evt.Seq)
		return nil
	},
}

func colorStatus(status event.Status) string {
	switch status {
	case event.StatusCompleted:
		return color.GreenString(string(status))
	case event.StatusFailed:
		return color.RedString(string(status))
	case event.StatusRetry, event.StatusInProgress:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func init() {
	ListCmd.Flags().StringVar(&listStatus, "status", "", "фильтр по статусу доставки")
	ListCmd.Flags().IntVar(&listLimit, "limit", 50, "размер выборки")
}
