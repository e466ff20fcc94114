package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// File names used by the CSV journal inside its directory.
const (
	OrdersFile = "orders.csv"
	RunsFile   = "runs.csv"
	TradesFile = "trades.csv"
	EquityFile = "equity.csv"
)

// CSV appends records to one file per record kind. Existing files are
// appended to; new files get a header row.
type CSV struct {
	mu     sync.Mutex
	files  []*os.File
	orders *gocsv.SafeCSVWriter
	runs   *gocsv.SafeCSVWriter
	trades *gocsv.SafeCSVWriter
	equity *gocsv.SafeCSVWriter
}

var _ Journal = (*CSV)(nil)

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	j := &CSV{}
	var err error
	if j.orders, err = j.open(filepath.Join(dir, OrdersFile), &[]OrderRecord{}); err != nil {
		return nil, j.closeAfter(err)
	}
	if j.runs, err = j.open(filepath.Join(dir, RunsFile), &[]RunRecord{}); err != nil {
		return nil, j.closeAfter(err)
	}
	if j.trades, err = j.open(filepath.Join(dir, TradesFile), &[]TradeRecord{}); err != nil {
		return nil, j.closeAfter(err)
	}
	if j.equity, err = j.open(filepath.Join(dir, EquityFile), &[]EquitySnapshot{}); err != nil {
		return nil, j.closeAfter(err)
	}
	return j, nil
}

// open appends to path, writing the header of empty's element type when
// the file is new.
func (j *CSV) open(path string, empty any) (*gocsv.SafeCSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	j.files = append(j.files, f)

	w := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		if err := gocsv.MarshalCSV(empty, w); err != nil {
			return nil, fmt.Errorf("write header %s: %w", path, err)
		}
	}
	return w, nil
}

func (j *CSV) closeAfter(err error) error {
	for _, f := range j.files {
		_ = f.Close()
	}
	return err
}

func (j *CSV) RecordOrder(o OrderRecord) error {
	return j.write(j.orders, &[]OrderRecord{o})
}

func (j *CSV) RecordRun(r RunRecord) error {
	return j.write(j.runs, &[]RunRecord{r})
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, &[]TradeRecord{t})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, &[]EquitySnapshot{e})
}

// write marshals rows and flushes so a crash never loses a recorded row.
func (j *CSV) write(w *gocsv.SafeCSVWriter, rows any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return gocsv.MarshalCSVWithoutHeaders(rows, w)
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, w := range []*gocsv.SafeCSVWriter{j.orders, j.runs, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, f := range j.files {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
