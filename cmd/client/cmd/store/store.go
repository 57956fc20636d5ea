package store

import (
	"fmt"
	"os"
	"text/tabwriter"

	"storesync/internal/app/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	registerName     string
	registerLocation string
	listActiveOnly   bool
)

var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Управление магазинами сети",
}

var RegisterCmd = &cobra.Command{
	Use:   "register <code>",
	Short: "Зарегистрировать магазин на узле синхронизации",
	Long: `Регистрирует магазин в сети. Контрольной точкой нового магазина
становится текущая вершина журнала: исторические события ему не доставляются.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		st, err := app.ProvisionStore(cmd.Context(), args[0], registerName, registerLocation)
		if err != nil {
			return fmt.Errorf("ошибка регистрации магазина: %w", err)
		}

		color.Green("✓ Магазин %s зарегистрирован", st.Code)
		fmt.Printf("Контрольная точка: %d\n", st.ProvisionedSeq)

		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список магазинов сети",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		stores, err := app.ListStores(cmd.Context(), listActiveOnly)
		if err != nil {
			return fmt.Errorf("ошибка получения списка магазинов: %w", err)
		}

		if len(stores) == 0 {
			fmt.Println("Магазины не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "КОД\tНАЗВАНИЕ\tЛОКАЦИЯ\tСТАТУС\tКОНТР. ТОЧКА")
		for _, st := range stores {
			status := color.GreenString("активен")
			if !st.Active {
				status = color.RedString("отключен")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", st.Code, st.Name, st.Location, status, st.ProvisionedSeq)
		}

		return w.Flush()
	},
}

func init() {
	RegisterCmd.Flags().StringVar(&registerName, "name", "", "название магазина")
	RegisterCmd.Flags().StringVar(&registerLocation, "location", "", "адрес магазина")
	RegisterCmd.MarkFlagRequired("name")

	ListCmd.Flags().BoolVar(&listActiveOnly, "active", false, "только действующие магазины")
}
