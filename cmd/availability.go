package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Santonastaso/scheduler-demo-sub000/app"
	"github.com/Santonastaso/scheduler-demo-sub000/config"
	"github.com/Santonastaso/scheduler-demo-sub000/core/availability"
)

var (
	availMachineID   string
	availDate        string
	availHour        int
	availFromHour    int
	availToHour      int
	availUnavailable bool
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Edit machine availability",
}

var availabilityToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip one hour between available and unavailable",
	RunE:  runAvailabilityToggle,
}

var availabilityRangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Mark a range of hours available or unavailable",
	RunE:  runAvailabilityRange,
}

func init() {
	availabilityCmd.PersistentFlags().StringVar(&availMachineID, "machine", "", "machine id")
	availabilityCmd.PersistentFlags().StringVar(&availDate, "date", "", "day (YYYY-MM-DD)")
	availabilityToggleCmd.Flags().IntVar(&availHour, "hour", 0, "hour of day (0-23)")
	availabilityRangeCmd.Flags().IntVar(&availFromHour, "from", 0, "first hour (inclusive)")
	availabilityRangeCmd.Flags().IntVar(&availToHour, "to", 0, "last hour (inclusive)")
	availabilityRangeCmd.Flags().BoolVar(&availUnavailable, "unavailable", true, "mark unavailable (false to clear)")
	availabilityCmd.AddCommand(availabilityToggleCmd)
	availabilityCmd.AddCommand(availabilityRangeCmd)
	rootCmd.AddCommand(availabilityCmd)
}

func runAvailabilityToggle(cmd *cobra.Command, args []string) error {
	return withAvailability(cmd, func(svc *availability.Service, date time.Time) (availability.Result, error) {
		return svc.ToggleHour(context.Background(), availMachineID, date, availHour)
	})
}

func runAvailabilityRange(cmd *cobra.Command, args []string) error {
	return withAvailability(cmd, func(svc *availability.Service, date time.Time) (availability.Result, error) {
		return svc.SetRange(context.Background(), availMachineID, date, availFromHour, availToHour, availUnavailable)
	})
}

func withAvailability(cmd *cobra.Command, op func(*availability.Service, time.Time) (availability.Result, error)) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	date, err := time.Parse("2006-01-02", availDate)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "service close: %v\n", cerr)
		}
	}()

	res, err := op(svc.Availability, date)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
