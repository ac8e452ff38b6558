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
)

var (
	placeTaskID    string
	placeMachineID string
	placeStart     string
	placeDuration  float64
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a task on a machine and print the outcome",
	RunE:  runPlace,
}

func init() {
	placeCmd.Flags().StringVar(&placeTaskID, "task", "", "task id")
	placeCmd.Flags().StringVar(&placeMachineID, "machine", "", "machine id")
	placeCmd.Flags().StringVar(&placeStart, "start", "", "start time (RFC3339)")
	placeCmd.Flags().Float64Var(&placeDuration, "hours", 0, "duration in hours")
	rootCmd.AddCommand(placeCmd)
}

func runPlace(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	start, err := time.Parse(time.RFC3339, placeStart)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
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

	res, err := svc.Engine.Place(context.Background(), placeTaskID, start, placeDuration, placeMachineID, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
