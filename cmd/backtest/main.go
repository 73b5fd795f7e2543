package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/tide-trading/internal/backtest"
	"github.com/rxtech-lab/tide-trading/internal/version"
)

// backtestAction loads the config, then runs every CSV file through the
// engine with the example SMA-crossover signal.
func backtestAction(_ context.Context, cmd *cli.Command) error {
	config, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(cmd.String("data"), "*.csv"))
		if err != nil {
			return fmt.Errorf("listing csv files: %w", err)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no candle files to process")
	}

	for _, file := range files {
		candles, err := loadCandles(file)
		if err != nil {
			return err
		}

		result, err := backtest.Run(candles, smaCrossoverSignal(config), config.FeeRoundTrip, config.StartingEquity)
		if err != nil {
			return fmt.Errorf("backtest of %s: %w", file, err)
		}

		fmt.Printf("%s: trades=%d pnl=%s win_rate=%s max_drawdown=%s\n",
			filepath.Base(file), result.Trades, result.PnL, result.WinRate, result.MaxDrawdown)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Replay candle CSV files through the SMA-crossover example strategy",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a yaml backtest config",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory scanned for *.csv when no files are given",
				Value:   "./data",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
