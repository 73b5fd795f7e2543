package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

// loadCandles reads a candle CSV with a time,open,high,low,close,volume
// header. Timestamps are RFC3339 or unix seconds.
func loadCandles(path string) ([]types.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "opening %s", path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "stat %s", path)
	}

	bar := progressbar.DefaultBytes(info.Size(), "loading "+path)

	reader := csv.NewReader(io.TeeReader(file, bar))
	reader.FieldsPerRecord = 6

	// header
	if _, err := reader.Read(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "reading header of %s", path)
	}

	var candles []types.Candle

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "reading %s", path)
		}

		candle, err := parseCandleRecord(record)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	return types.SortCandles(candles), nil
}

func parseCandleRecord(record []string) (types.Candle, error) {
	ts, err := parseTime(record[0])
	if err != nil {
		return types.Candle{}, err
	}

	fields := make([]decimal.Decimal, 0, 5)

	for _, raw := range record[1:6] {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Candle{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "parsing field %q", raw)
		}

		fields = append(fields, value)
	}

	return types.Candle{
		Time:   ts,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}

	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}

	return time.Time{}, errors.Newf(errors.ErrCodeInvalidParameter, "unrecognized timestamp %q", raw)
}
