package exchange

import (
	"time"
)

// SnapGranularity snaps the requested granularity (minutes) to the nearest
// value in the venue's ascending supported list by absolute difference.
// When two supported values are equally close, the lower one wins.
func SnapGranularity(minutes int, supported []int) int {
	if len(supported) == 0 {
		return minutes
	}

	best := supported[0]
	bestDistance := abs(minutes - best)

	for _, candidate := range supported[1:] {
		distance := abs(minutes - candidate)
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}

	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// window is one sub-range of a paginated candle fetch.
type window struct {
	start time.Time
	end   time.Time
}

// chunkWindows splits [start,end) into sequential sub-windows no larger than
// granularity seconds times the venue's per-call row cap.
func chunkWindows(start, end time.Time, granularityMinutes, maxRows int) []window {
	if !start.Before(end) {
		return nil
	}

	span := time.Duration(granularityMinutes) * time.Minute * time.Duration(maxRows)

	var windows []window

	cursor := start
	for cursor.Before(end) {
		next := cursor.Add(span)
		if next.After(end) {
			next = end
		}

		windows = append(windows, window{start: cursor, end: next})
		cursor = next
	}

	return windows
}
