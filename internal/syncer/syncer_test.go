package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/cashforce/propostas-sync/internal/pipeline"
)

type fakeSource struct {
	rows    []pipeline.RawRow
	rowsErr error
	cells   map[string]string
	cellErr error
}

func (f *fakeSource) Rows(ctx context.Context) ([]pipeline.RawRow, error) {
	return f.rows, f.rowsErr
}

func (f *fakeSource) NamedCell(ctx context.Context, worksheet, cellRef string) (string, error) {
	if f.cellErr != nil {
		return "", f.cellErr
	}
	return f.cells[worksheet+"!"+cellRef], nil
}

type fakeStore struct {
	batches    [][]pipeline.Record
	upsertErr  map[int]error // batch index (0-based) -> error
	byKey      map[string]pipeline.Record
	singletons map[string]map[string]any
	rpcCalls   []string
	rpcErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byKey:      map[string]pipeline.Record{},
		singletons: map[string]map[string]any{},
	}
}

func (f *fakeStore) Upsert(ctx context.Context, table, onConflict string, records any) error {
	batch := records.([]pipeline.Record)
	if err := f.upsertErr[len(f.batches)]; err != nil {
		return err
	}
	f.batches = append(f.batches, batch)
	for _, rec := range batch {
		f.byKey[rec.Key()] = rec
	}
	return nil
}

func (f *fakeStore) UpsertSingleton(ctx context.Context, table string, record map[string]any) error {
	f.singletons[table] = record
	return nil
}

func (f *fakeStore) RPC(ctx context.Context, name string) error {
	f.rpcCalls = append(f.rpcCalls, name)
	return f.rpcErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawRow(nfid, date, valor string) pipeline.RawRow {
	return pipeline.RawRow{
		"NFID":                     nfid,
		"Data da operação":         date,
		"Valor Bruto da Duplicata": valor,
	}
}

func TestRunEndToEndScenario(t *testing.T) {
	// Two rows share nfid A1 (later date listed second) and one row has no
	// nfid: exactly one record survives, carrying the most recent values.
	src := &fakeSource{rows: []pipeline.RawRow{
		rawRow("A1", "2024-02-01", "100,00"),
		rawRow("A1", "2024-02-15", "200,00"),
		rawRow("", "2024-02-20", "300,00"),
	}}
	store := newFakeStore()

	res, err := New(src, store, discardLogger(), 5000).Run(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.RowsProcessed != 1 {
		t.Fatalf("expected rows_processed 1, got %d", res.RowsProcessed)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 1 {
		t.Fatalf("expected a single upsert of one record, got %v", store.batches)
	}
	rec := store.byKey["A1"]
	if rec == nil {
		t.Fatal("expected record A1 to be upserted")
	}
	if rec["valor_bruto_duplicata"] != 200.0 {
		t.Fatalf("expected the 2024-02-15 value (200.0) to win, got %v", rec["valor_bruto_duplicata"])
	}
	if rec["data_operacao"] != "2024-02-15" {
		t.Fatalf("expected ISO date 2024-02-15, got %v", rec["data_operacao"])
	}
}

func TestRunIsIdempotent(t *testing.T) {
	rows := []pipeline.RawRow{
		rawRow("A1", "2024-02-01", "100,00"),
		rawRow("B2", "2024-02-02", "50,00"),
	}
	src := &fakeSource{rows: rows}
	store := newFakeStore()
	s := New(src, store, discardLogger(), 5000)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := make(map[string]pipeline.Record, len(store.byKey))
	for k, v := range store.byKey {
		first[k] = v
	}

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(store.byKey) != len(first) {
		t.Fatalf("expected no new rows on repeat run, got %d vs %d", len(store.byKey), len(first))
	}
	if !reflect.DeepEqual(store.byKey, first) {
		t.Fatalf("expected identical stored state after repeat run")
	}
}

func TestBatchPartition(t *testing.T) {
	rows := make([]pipeline.RawRow, 0, 12345)
	for i := 0; i < 12345; i++ {
		rows = append(rows, rawRow(fmt.Sprintf("NF%05d", i), "2024-01-01", "1,00"))
	}
	src := &fakeSource{rows: rows}
	store := newFakeStore()

	res, err := New(src, store, discardLogger(), 5000).Run(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.RowsProcessed != 12345 {
		t.Fatalf("expected 12345 rows processed, got %d", res.RowsProcessed)
	}
	sizes := make([]int, len(store.batches))
	for i, b := range store.batches {
		sizes[i] = len(b)
	}
	if !reflect.DeepEqual(sizes, []int{5000, 5000, 2345}) {
		t.Fatalf("expected batches of 5000/5000/2345, got %v", sizes)
	}
	// Relative order preserved across batch boundaries.
	if store.batches[1][0].Key() != store.batches[0][4999].Key() {
		// Keys are distinct; just check contiguity via the first/last pair.
		first := store.batches[1][0].Key()
		last := store.batches[0][len(store.batches[0])-1].Key()
		if first <= last {
			t.Fatalf("expected batch 2 to continue after batch 1, got %s after %s", first, last)
		}
	}
}

func TestBatchFailureAbortsRun(t *testing.T) {
	rows := make([]pipeline.RawRow, 0, 7000)
	for i := 0; i < 7000; i++ {
		rows = append(rows, rawRow(fmt.Sprintf("NF%05d", i), "2024-01-01", "1,00"))
	}
	src := &fakeSource{rows: rows}
	store := newFakeStore()
	store.upsertErr = map[int]error{1: errors.New("connection reset")}

	_, err := New(src, store, discardLogger(), 5000).Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail on second batch")
	}
	if got := err.Error(); got != "upsert batch 2 (2000 records): connection reset" {
		t.Fatalf("expected batch context in error, got %q", got)
	}
	// The first batch was already durably applied; the failure only stops
	// later batches.
	if len(store.batches) != 1 {
		t.Fatalf("expected exactly one applied batch, got %d", len(store.batches))
	}
	// No auxiliary refresh after a failed run.
	if len(store.rpcCalls) != 0 {
		t.Fatalf("expected no aggregate refresh after failure, got %v", store.rpcCalls)
	}
}

func TestAuxiliaryFailuresDoNotAffectResult(t *testing.T) {
	src := &fakeSource{
		rows:    []pipeline.RawRow{rawRow("A1", "2024-02-01", "100,00")},
		cellErr: errors.New("worksheet unavailable"),
	}
	store := newFakeStore()
	store.rpcErr = errors.New("refresh timed out")

	res, err := New(src, store, discardLogger(), 5000).Run(context.Background())
	if err != nil {
		t.Fatalf("expected success despite auxiliary failures, got %v", err)
	}
	if res.RowsProcessed != 1 {
		t.Fatalf("expected rows_processed 1, got %d", res.RowsProcessed)
	}
	if len(store.singletons) != 0 {
		t.Fatalf("expected no KPI write when cells are unavailable, got %v", store.singletons)
	}
}

func TestKPISnapshotWrite(t *testing.T) {
	src := &fakeSource{
		rows: []pipeline.RawRow{rawRow("A1", "2024-02-01", "100,00")},
		cells: map[string]string{
			"Ritmo!B2":                  "R$ 1.500.000,00",
			"Dias para o fim do mês!A2": "12",
		},
	}
	store := newFakeStore()

	if _, err := New(src, store, discardLogger(), 5000).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	snap := store.singletons["kpis_atuais"]
	if snap == nil {
		t.Fatal("expected a KPI snapshot write")
	}
	if snap["id"] != 1 {
		t.Fatalf("expected singleton id 1, got %v", snap["id"])
	}
	if snap["ritmo_projetado"] != 1500000.0 {
		t.Fatalf("expected ritmo 1500000, got %v", snap["ritmo_projetado"])
	}
	if snap["dias_restantes_mes"] != "12" {
		t.Fatalf("expected dias 12, got %v", snap["dias_restantes_mes"])
	}
	if snap["updated_at"] == "" {
		t.Fatal("expected updated_at to be set")
	}
	if got := store.rpcCalls; len(got) != 1 || got[0] != "refresh_propostas_resumo_mensal" {
		t.Fatalf("expected one aggregate refresh call, got %v", got)
	}
}

func TestUnparsableKPIDaysFallsBackToNA(t *testing.T) {
	src := &fakeSource{
		rows: []pipeline.RawRow{rawRow("A1", "2024-02-01", "100,00")},
		cells: map[string]string{
			"Ritmo!B2":                  "---",
			"Dias para o fim do mês!A2": "sem dados",
		},
	}
	store := newFakeStore()

	if _, err := New(src, store, discardLogger(), 5000).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	snap := store.singletons["kpis_atuais"]
	if snap == nil {
		t.Fatal("expected a KPI snapshot write")
	}
	if _, present := snap["ritmo_projetado"]; present {
		t.Fatalf("expected no ritmo field for unparsable cell, got %v", snap["ritmo_projetado"])
	}
	if snap["dias_restantes_mes"] != "N/A" {
		t.Fatalf("expected N/A fallback, got %v", snap["dias_restantes_mes"])
	}
}

func TestRunFailsWhenNoRows(t *testing.T) {
	store := newFakeStore()
	_, err := New(&fakeSource{}, store, discardLogger(), 5000).Run(context.Background())
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestRunFailsWhenNoRecordSurvivesKeyGate(t *testing.T) {
	src := &fakeSource{rows: []pipeline.RawRow{
		rawRow("", "2024-02-01", "100,00"),
		rawRow("---", "2024-02-02", "200,00"),
	}}
	store := newFakeStore()

	_, err := New(src, store, discardLogger(), 5000).Run(context.Background())
	if !errors.Is(err, ErrNoValidRecords) {
		t.Fatalf("expected ErrNoValidRecords, got %v", err)
	}
	if len(store.batches) != 0 {
		t.Fatalf("expected no upserts, got %d batches", len(store.batches))
	}
}

func TestRunFailsWhenNoColumnMaps(t *testing.T) {
	src := &fakeSource{rows: []pipeline.RawRow{
		{"Cabeçalho Estranho": "x"},
	}}
	_, err := New(src, newFakeStore(), discardLogger(), 5000).Run(context.Background())
	if !errors.Is(err, ErrEmptyAfterConversion) {
		t.Fatalf("expected ErrEmptyAfterConversion, got %v", err)
	}
}
