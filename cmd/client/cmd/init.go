// cmd/client/cmd/init.go
package cmd

import (
	"fmt"

	"storesync/cmd/client/cmd/events"
	"storesync/cmd/client/cmd/pricing"
	"storesync/cmd/client/cmd/store"
	"storesync/cmd/client/cmd/transfer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние агента и соединения с сервером",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Магазин:  %s\n", cfg.StoreCode)
		fmt.Printf("Сервер:   %s\n", cfg.ServerAddress)
		fmt.Printf("Зеркало:  %s\n", cfg.DataPath)

		checkpoint, err := app.Checkpoint()
		if err != nil {
			return err
		}
		fmt.Printf("Контрольная точка: %d\n", checkpoint)

		fmt.Print("Соединение: ")
		if err := app.CheckConnection(); err != nil {
			color.Red("недоступно (%v)", err)
		} else {
			color.Green("OK")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(store.StoreCmd)
	store.StoreCmd.AddCommand(store.RegisterCmd)
	store.StoreCmd.AddCommand(store.ListCmd)

	rootCmd.AddCommand(transfer.TransferCmd)
	transfer.TransferCmd.AddCommand(transfer.CreateCmd)
	transfer.TransferCmd.AddCommand(transfer.ListCmd)
	transfer.TransferCmd.AddCommand(transfer.GetCmd)
	transfer.TransferCmd.AddCommand(transfer.ApproveCmd)
	transfer.TransferCmd.AddCommand(transfer.RejectCmd)
	transfer.TransferCmd.AddCommand(transfer.ModifyCmd)
	transfer.TransferCmd.AddCommand(transfer.MoveCmd)
	transfer.TransferCmd.AddCommand(transfer.ReceiveCmd)
	transfer.TransferCmd.AddCommand(transfer.TrackingCmd)

	rootCmd.AddCommand(pricing.PricingCmd)
	pricing.PricingCmd.AddCommand(pricing.ShowCmd)
	pricing.PricingCmd.AddCommand(pricing.UpdateCmd)
	pricing.PricingCmd.AddCommand(pricing.SyncCmd)

	rootCmd.AddCommand(events.EventsCmd)
	events.EventsCmd.AddCommand(events.ListCmd)
	events.EventsCmd.AddCommand(events.RetryCmd)
	events.EventsCmd.AddCommand(events.AbandonCmd)
}
