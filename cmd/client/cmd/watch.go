// cmd/client/cmd/watch.go
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"storesync/internal/app/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Подключиться к потоку событий",
	Long: `Подключается к потоку событий узла синхронизации и ведет локальное
зеркало перемещений, цен и остатков. При первом подключении сервер
доигрывает пропущенные события с сохраненной контрольной точки.

Команда работает до прерывания (Ctrl+C). При обрыве соединения агент
переподключается автоматически.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		checkpoint, err := app.Checkpoint()
		if err != nil {
			return err
		}

		fmt.Printf("Магазин %s, контрольная точка %d. Ожидание событий...\n\n",
			app.StoreCode(), checkpoint)

		err = app.Watch(ctx, printEnvelope)
		if ctx.Err() != nil {
			fmt.Println("\nПоток остановлен")
			return nil
		}

		return err
	},
}

func printEnvelope(env client.Envelope) {
	ts := env.Timestamp.Format("15:04:05")

	switch env.Type {
	case "SYNC_COMPLETED":
		color.Green("%s  реплей завершен, живой поток", ts)
	case "TRANSFER_STATUS_CHANGED":
		color.Cyan("%s  #%d  перемещение: %s", ts, env.Seq, compactPayload(env))
	case "PRICE_UPDATED":
		color.Magenta("%s  #%d  цена: %s", ts, env.Seq, compactPayload(env))
	case "INVENTORY_UPDATED":
		fmt.Printf("%s  #%d  остаток: %s\n", ts, env.Seq, compactPayload(env))
	case "STORE_ALERT":
		color.Yellow("%s  #%d  уведомление: %s", ts, env.Seq, compactPayload(env))
	default:
		fmt.Printf("%s  #%d  %s\n", ts, env.Seq, env.Type)
	}
}

func compactPayload(env client.Envelope) string {
	const max = 120

	s := string(env.Payload)
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
