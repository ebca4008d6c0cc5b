// SPDX-License-Identifier: MIT
package analysis

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range into the usual mixing regions. The
// last band is open ended and stops at Nyquist.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 0},
}

// BandLevels averages byte spectrum values per band and writes them to dst
// as fractions of full scale. Bands with no bins report 0. dst must be at
// least len(bands) long.
func BandLevels(src SpectrumSource, bins []byte, bands []FrequencyBand, dst []float64) {
	for b, band := range bands {
		var sum, count int
		for i, v := range bins {
			hz := src.FrequencyForBin(i)
			if hz < band.LowHz {
				continue
			}
			if band.HighHz > 0 && hz >= band.HighHz {
				break
			}
			sum += int(v)
			count++
		}
		if count == 0 {
			dst[b] = 0
			continue
		}
		dst[b] = float64(sum) / float64(count) / 255
	}
}
