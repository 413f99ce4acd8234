package main

import (
	"fmt"
	"time"

	"github.com/nexidian/gocliselect"
	"github.com/spf13/cobra"

	"minutebook/timeline"
)

func SetupCommands(a *App) *cobra.Command {
	// root command
	rootCmd := &cobra.Command{
		Use:           "minutebook",
		Short:         "Merge call logs into per-employee minute-by-minute timelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	employeeNames := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names, err := a.repo.GetAllEmployees()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}

	// command for creating the workbook from a departments file
	var initForce bool
	initCmd := &cobra.Command{
		Use:   "init [departments-file]",
		Short: "Create the workbook with one sheet per department and employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.InitWorkbook(args[0], initForce)
		},
	}
	initCmd.Flags().BoolVar(&initForce, "force", false, "replace an existing workbook")

	// command for merging call-log files
	var mergeForce bool
	mergeCmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Merge call-log exports into the workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.MergeFiles(cmd.Context(), args, mergeForce)
		},
	}
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "merge files that were merged before")

	// command for importing PC-activity exports
	var activityForce bool
	activityCmd := &cobra.Command{
		Use:   "import-activity [files...]",
		Short: "Merge program and site usage exports into the workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ImportActivity(cmd.Context(), args, activityForce)
		},
	}
	activityCmd.Flags().BoolVar(&activityForce, "force", false, "import files that were imported before")

	// command for pulling calls from Bitrix24
	var fromFlag, toFlag string
	var pullForce bool
	pullCmd := &cobra.Command{
		Use:   "pull-bitrix",
		Short: "Merge calls from the Bitrix24 portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := pullRange(fromFlag, toFlag, a.cfg.CompanyZone())
			if err != nil {
				return err
			}
			return a.PullBitrix(cmd.Context(), from, to, pullForce)
		},
	}
	pullCmd.Flags().StringVar(&fromFlag, "from", "", "first day to pull (default today)")
	pullCmd.Flags().StringVar(&toFlag, "to", "", "last day to pull, inclusive (default --from)")
	pullCmd.Flags().BoolVar(&pullForce, "force", false, "pull a range that was merged before")

	// command for watching the inbox
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Merge call logs as they land in the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Watch(cmd.Context())
		},
	}

	sheetsCmd := &cobra.Command{
		Use:   "sheets",
		Short: "List workbook sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ListSheets()
		},
	}

	// command for printing one employee's timeline
	showCmd := &cobra.Command{
		Use:               "show [employee]",
		Short:             "Print an employee's timeline",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: employeeNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.Show(args[0])
			}

			names, err := a.repo.GetAllEmployees()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("no employees registered, run 'init' first")
			}

			menu := gocliselect.NewMenu("Choose an employee")
			for _, name := range names {
				menu.AddItem(name, name)
			}
			choice, err := menuChoice(menu.Display())
			if err != nil || choice == "" {
				return err
			}
			return a.Show(choice)
		},
	}

	// command for displaying merge history
	historyCmd := &cobra.Command{
		Use:       "history [day|week|month|year]",
		Short:     "Show merges of the current period",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month", "year"},
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "day"
			if len(args) > 0 {
				period = args[0]
			}
			return a.History(period)
		},
	}

	// add commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

// menuChoice unwraps the id of the picked menu item. Escape picks nothing
// and yields "".
func menuChoice(id any, err error) (string, error) {
	if err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	choice, _ := id.(string)
	return choice, nil
}

// pullRange turns the --from/--to days into [from, to) in the company zone.
func pullRange(fromFlag, toFlag string, zone *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(zone)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, zone)

	if fromFlag != "" {
		d, ok := timeline.ParseDate(fromFlag)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date: %s", fromFlag)
		}
		from = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, zone)
	}

	last := from
	if toFlag != "" {
		d, ok := timeline.ParseDate(toFlag)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date: %s", toFlag)
		}
		last = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, zone)
	}
	if last.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}

	return from, last.AddDate(0, 0, 1), nil
}
