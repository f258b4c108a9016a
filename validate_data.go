package main

import (
	"fmt"
	"math"
	"time"

	"chanquant/series"
)

// maxCalendarGap is the longest run of calendar days between bars that is
// still explained by exchange holidays (Spring Festival closes ~9 days).
const maxCalendarGap = 12 * 24 * time.Hour

// DataReport is the outcome of validating one data file.
type DataReport struct {
	RawRows    int
	Bars       int
	Duplicates int
	First      time.Time
	Last       time.Time

	FailedChecks []string
	Warnings     []string
}

func (r DataReport) Passed() bool { return len(r.FailedChecks) == 0 }

// ValidateBars normalizes raw rows and checks price consistency. Malformed
// rows fail the report; zero volume and long calendar gaps only warn.
func ValidateBars(raw []series.Bar) (DataReport, series.Series) {
	rep := DataReport{RawRows: len(raw)}
	s, err := series.Normalize(raw)
	if err != nil {
		rep.FailedChecks = append(rep.FailedChecks, err.Error())
		return rep, nil
	}
	rep.Bars = s.Len()
	rep.Duplicates = len(raw) - s.Len()
	if s.Len() == 0 {
		rep.FailedChecks = append(rep.FailedChecks, "no bars")
		return rep, s
	}
	rep.First, rep.Last = s.First(), s.Last()

	var badOHLC, nonPositive, zeroVol, gaps int
	firstBad := -1
	for i, b := range s {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			nonPositive++
			if firstBad < 0 {
				firstBad = i
			}
			continue
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) || b.Low > b.High {
			badOHLC++
			if firstBad < 0 {
				firstBad = i
			}
		}
		if b.Volume == 0 {
			zeroVol++
		}
		if i > 0 && b.Time.Sub(s[i-1].Time) > maxCalendarGap {
			gaps++
		}
	}

	if nonPositive > 0 {
		rep.FailedChecks = append(rep.FailedChecks, fmt.Sprintf("%d bars with non-positive prices", nonPositive))
	}
	if badOHLC > 0 {
		rep.FailedChecks = append(rep.FailedChecks, fmt.Sprintf("%d bars with high/low outside open/close", badOHLC))
	}
	if firstBad >= 0 {
		rep.FailedChecks = append(rep.FailedChecks, fmt.Sprintf("first bad bar: %d (%s)", firstBad, s[firstBad].Time.Format("2006-01-02")))
	}
	if rep.Duplicates > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d duplicate dates collapsed (last row kept)", rep.Duplicates))
	}
	if zeroVol > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d zero-volume bars (suspended days?)", zeroVol))
	}
	if gaps > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d calendar gaps longer than %d days", gaps, int(maxCalendarGap.Hours()/24)))
	}
	return rep, s
}
