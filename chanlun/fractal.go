package chanlun

// FindFractals marks bar i a top when its high strictly exceeds the highest
// high of the window bars on each side, or a bottom on the symmetric low
// test. Bars within window of either end are never fractals.
func FindFractals(bars []MergedBar, window int) []Fractal {
	if window < 1 {
		window = 1
	}
	if len(bars) < 2*window+1 {
		return nil
	}

	var out []Fractal
	for i := window; i < len(bars)-window; i++ {
		leftHigh, leftLow := bars[i-window].High, bars[i-window].Low
		for x := i - window + 1; x < i; x++ {
			if bars[x].High > leftHigh {
				leftHigh = bars[x].High
			}
			if bars[x].Low < leftLow {
				leftLow = bars[x].Low
			}
		}
		rightHigh, rightLow := bars[i+1].High, bars[i+1].Low
		for x := i + 2; x <= i+window; x++ {
			if bars[x].High > rightHigh {
				rightHigh = bars[x].High
			}
			if bars[x].Low < rightLow {
				rightLow = bars[x].Low
			}
		}

		b := bars[i]
		switch {
		case b.High > leftHigh && b.High > rightHigh:
			out = append(out, Fractal{Index: i, Kind: Top, High: b.High, Low: b.Low, Time: b.Time})
		case b.Low < leftLow && b.Low < rightLow:
			out = append(out, Fractal{Index: i, Kind: Bottom, High: b.High, Low: b.Low, Time: b.Time})
		}
	}
	return out
}
