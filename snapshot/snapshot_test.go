package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuportal/inventory/models"
)

// --- Mock RowSource ---

type MockRowSource struct {
	Rows []models.VariantRow
	Err  error
}

func (m *MockRowSource) VariantRows(ctx context.Context) ([]models.VariantRow, error) {
	return m.Rows, m.Err
}

// --- Helpers ---

func newTestRow(mainSKU, variantSKU, name string) models.VariantRow {
	return models.VariantRow{
		MainSKU:     mainSKU,
		VariantSKU:  variantSKU,
		ProductName: name,
		Brand:       "Nike",
		Category:    "Hoodies",
		Size:        "XL",
		Condition:   "Good",
		Colour:      "Black",
		Date:        time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Cost:        decimal.RequireFromString("4"),
		Price:       decimal.RequireFromString("12.5"),
		Fees:        decimal.RequireFromString("1.33"),
		Net:         decimal.RequireFromString("11.17"),
		Profit:      decimal.RequireFromString("7.17"),
		Margin:      decimal.RequireFromString("57.36"),
		Qty:         2,
		Location:    "Spare Room",
		Status:      "Listed",
	}
}

// --- Format ---

func TestRecord(t *testing.T) {
	rec := Record(newTestRow("001", "HOOD-XL-001", "Hoodie"))

	require.Len(t, rec, len(Header))
	assert.Equal(t, []string{
		"001", "HOOD-XL-001", "Hoodie", "Nike", "Hoodies", "XL", "Good", "Black",
		"05/03/2024", "4.00", "12.50", "1.33", "11.17", "7.17", "57.36%", "2", "Spare Room", "Listed",
	}, rec)
}

func TestRecordZeroDate(t *testing.T) {
	row := newTestRow("001", "A", "x")
	row.Date = time.Time{}

	assert.Equal(t, "", Record(row)[8])
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.VariantRow{newTestRow("001", "A", "Hoodie, grey"), newTestRow("002", "B", "Tee")}

	require.NoError(t, Encode(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "Hoodie, grey", records[1][2])
	assert.Equal(t, "002", records[2][0])
}

// --- Writer ---

func TestWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private", "inventory.csv")
	w := NewWriter(path, &MockRowSource{Rows: []models.VariantRow{newTestRow("001", "A", "Hoodie")}})

	require.NoError(t, w.Write(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Main SKU,Variant SKU,"))
	assert.Contains(t, string(data), "001,A,Hoodie")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriterKeepsPreviousFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	w := NewWriter(path, &MockRowSource{Err: errors.New("db down")})
	err := w.Write(context.Background())

	assert.ErrorContains(t, err, "db down")
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))
}

func TestWriterRemovesTempFileWhenReplaceFails(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the destination makes the final rename fail
	// after the temp file has been written.
	path := filepath.Join(dir, "inventory.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))

	w := NewWriter(path, &MockRowSource{Rows: []models.VariantRow{newTestRow("001", "A", "Hoodie")}})
	err := w.Write(context.Background())

	assert.ErrorContains(t, err, "failed to replace snapshot")
	tmps, globErr := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, globErr)
	assert.Empty(t, tmps)
}

func TestWriterConcurrentWritesNeverExposePartialFile(t *testing.T) {
	const (
		writers = 8
		writes  = 10
		rowsN   = 2000
	)
	rows := make([]models.VariantRow, rowsN)
	for i := range rows {
		rows[i] = newTestRow("001", fmt.Sprintf("HOOD-XL-%04d", i), "Hoodie")
	}
	path := filepath.Join(t.TempDir(), "inventory.csv")
	w := NewWriter(path, &MockRowSource{Rows: rows})
	require.NoError(t, w.Write(context.Background()))

	var wg sync.WaitGroup
	errs := make(chan error, writers*writes)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range writes {
				if err := w.Write(context.Background()); err != nil {
					errs <- err
				}
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	reads := 0
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		f, err := os.Open(path)
		require.NoError(t, err)
		records, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err)
		require.Len(t, records, rowsN+1, "read %d saw a partial file", reads)
		reads++
	}

	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	tmps, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

// --- Scheduler ---

type MockSnapshotter struct {
	mu       sync.Mutex
	writes   int
	inFlight int
	maxSeen  int
	sleep    time.Duration
	err      error
}

func (m *MockSnapshotter) Write(ctx context.Context) error {
	m.mu.Lock()
	m.writes++
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.mu.Unlock()

	time.Sleep(m.sleep)

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
	return m.err
}

func (m *MockSnapshotter) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockSnapshotter) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSeen
}

func TestSchedulerDebounces(t *testing.T) {
	target := &MockSnapshotter{}
	s := NewScheduler(target, 50*time.Millisecond, true, nil)

	for i := 0; i < 10; i++ {
		s.Trigger()
	}

	assert.Eventually(t, func() bool { return target.Writes() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, target.Writes())
}

func TestSchedulerDisabled(t *testing.T) {
	target := &MockSnapshotter{}
	s := NewScheduler(target, 10*time.Millisecond, false, nil)

	s.Trigger()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, 0, target.Writes())
}

func TestSchedulerCloseFlushesPendingWrite(t *testing.T) {
	target := &MockSnapshotter{}
	s := NewScheduler(target, time.Hour, true, nil)

	s.Trigger()
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, target.Writes())

	// Closed schedulers ignore triggers.
	s.Trigger()
	assert.Equal(t, 1, target.Writes())
}

func TestSchedulerWritesNeverOverlap(t *testing.T) {
	target := &MockSnapshotter{sleep: 5 * time.Millisecond}
	s := NewScheduler(target, time.Millisecond, true, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Trigger()
				if j%3 == 0 {
					_ = s.Flush()
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, 1, target.MaxConcurrent())
	assert.Greater(t, target.Writes(), 0)
}

func TestSchedulerRecordsFailure(t *testing.T) {
	target := &MockSnapshotter{err: errors.New("disk full")}
	s := NewScheduler(target, time.Millisecond, true, nil)

	s.Trigger()

	assert.Eventually(t, func() bool { return s.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.EqualError(t, s.Err(), "disk full")
	require.NoError(t, s.Close(context.Background()))
}

func TestSchedulerWritesRealSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	source := &MockRowSource{Rows: []models.VariantRow{newTestRow("001", "A", "Hoodie")}}
	s := NewScheduler(NewWriter(path, source), time.Hour, true, nil)

	s.Trigger()
	require.NoError(t, s.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "001,A,Hoodie")
}
