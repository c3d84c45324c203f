package testutil

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// PriceSeries describes a synthetic daily price history
type PriceSeries struct {
	Ticker string
	Start  time.Time
	Days   int
	Base   float64
	Step   float64
}

// FixtureStart is the first trading day used by the default fixtures
var FixtureStart = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)

// SPX returns a 40-day close/volume series named like the S&P 500 export
func SPX() PriceSeries {
	return PriceSeries{Ticker: "S&P500", Start: FixtureStart, Days: 40, Base: 4000, Step: 5}
}

// TSLA returns a 40-day close/volume series named like the Tesla export
func TSLA() PriceSeries {
	return PriceSeries{Ticker: "TSLA", Start: FixtureStart, Days: 40, Base: 110, Step: 1.5}
}

// CSV renders the series with Date, <ticker> Open, <ticker> Close and <ticker> Volume columns
func (p PriceSeries) CSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"Date",
		p.Ticker + " Open",
		p.Ticker + " Close",
		p.Ticker + " Volume",
	})
	for i := 0; i < p.Days; i++ {
		day := p.Start.AddDate(0, 0, i)
		close := p.Base + float64(i)*p.Step
		_ = w.Write([]string{
			day.Format("2006-01-02"),
			strconv.FormatFloat(close-p.Step/2, 'f', 2, 64),
			strconv.FormatFloat(close, 'f', 2, 64),
			strconv.Itoa(1000000 + i*1000),
		})
	}
	w.Flush()
	return buf.Bytes()
}

// FileName returns a CSV file name for the series
func (p PriceSeries) FileName() string {
	return fmt.Sprintf("%s.csv", p.Ticker)
}

// DataURL encodes data the way a browser file input does
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
