package timeline

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

type durationKind int

const (
	kindSeconds durationKind = iota
	kindTimecode
)

// Duration is a call length as it arrived from an export: either a number of
// seconds or a "MM:SS" / "HH:MM:SS" timecode.
type Duration struct {
	kind     durationKind
	seconds  float64
	timecode string
}

func Seconds(n float64) Duration {
	return Duration{kind: kindSeconds, seconds: n}
}

func Timecode(s string) Duration {
	return Duration{kind: kindTimecode, timecode: s}
}

// ParseDuration resolves a raw cell value into one of the two variants.
// Anything that reads as a plain number is seconds.
func ParseDuration(raw string) Duration {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil {
		return Seconds(n)
	}
	return Timecode(raw)
}

// TotalSeconds returns the length in seconds or an error for a malformed timecode.
func (d Duration) TotalSeconds() (float64, error) {
	if d.kind == kindSeconds {
		if math.IsNaN(d.seconds) || math.IsInf(d.seconds, 0) {
			return 0, fmt.Errorf("invalid seconds value %v", d.seconds)
		}
		return d.seconds, nil
	}

	parts := strings.Split(d.timecode, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid timecode %q", d.timecode)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timecode %q", d.timecode)
		}
		total = total*60 + n
	}
	return float64(total), nil
}

// Minutes rounds the duration up to whole minutes. Every call occupies at
// least one minute, including calls whose length could not be read.
func (d Duration) Minutes() int {
	secs, err := d.TotalSeconds()
	if err != nil {
		log.Printf("malformed call duration, using 1 minute: %v", err)
		return 1
	}

	minutes := int(math.Ceil(secs / 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func (d Duration) String() string {
	if d.kind == kindTimecode {
		return d.timecode
	}
	return strconv.FormatFloat(d.seconds, 'f', -1, 64) + "s"
}

// NormalizeMinutes parses a raw duration and returns its minute count.
func NormalizeMinutes(raw string) int {
	return ParseDuration(raw).Minutes()
}
