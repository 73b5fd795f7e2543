package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/tide-trading/internal/exchange"
	"github.com/rxtech-lab/tide-trading/internal/logger"
	"github.com/rxtech-lab/tide-trading/internal/transport"
	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/internal/version"
)

// newVenue builds the protocol client for a venue name.
func newVenue(name string, sender exchange.Sender, logg *logger.Logger) (exchange.Exchange, error) {
	switch name {
	case "coinbase":
		return exchange.NewCoinbase(sender, logg), nil
	case "kraken":
		return exchange.NewKraken(sender, logg), nil
	case "bitstamp":
		return exchange.NewBitstamp(sender, logg), nil
	default:
		return nil, fmt.Errorf("unknown venue %q", name)
	}
}

// downloadAction fetches public candles for one product and writes them as
// a CSV consumable by the backtest command.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	logg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer logg.Sync()

	venue, err := newVenue(cmd.String("venue"), transport.NewRetryingClient(transport.NewClient()), logg)
	if err != nil {
		return err
	}

	product := venue.NormalizeProduct(cmd.String("product"))
	start := cmd.Timestamp("start").UTC()
	end := cmd.Timestamp("end").UTC()

	candles, err := venue.GetCandles(ctx, product, int(cmd.Int("granularity")), start, end)
	if err != nil {
		return fmt.Errorf("fetching candles: %w", err)
	}

	if err := writeCandles(cmd.String("output"), candles); err != nil {
		return err
	}

	log.Printf("Wrote %d candles for %s to %s", len(candles), product, cmd.String("output"))

	return nil
}

func writeCandles(path string, candles []types.Candle) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	bar := progressbar.Default(int64(len(candles)), "writing "+path)

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	for _, candle := range candles {
		record := []string{
			strconv.FormatInt(candle.Time.UTC().Unix(), 10),
			candle.Open.String(),
			candle.High.String(),
			candle.Low.String(),
			candle.Close.String(),
			candle.Volume.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}

		bar.Add(1)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "market",
		Usage:   "Download historical candles from a venue into a CSV",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "venue",
				Aliases:  []string{"v"},
				Usage:    "Venue to pull from (coinbase, kraken, bitstamp)",
				Value:    "coinbase",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "product",
				Aliases:  []string{"p"},
				Usage:    "Canonical product symbol, e.g. BTC/USD",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Candle bucket in minutes",
				Value:   60,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output CSV path",
				Value:   "./data/candles.csv",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
