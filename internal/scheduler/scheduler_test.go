package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evaluations/internal/cycle"
	"evaluations/internal/memstore"
	"evaluations/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	years []int
	err   map[int]error
}

func (g *fakeGenerator) GenerateCycle(ctx context.Context, year int) (cycle.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.years = append(g.years, year)
	return cycle.Result{Year: year}, g.err[year]
}

func (g *fakeGenerator) calls() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.years...)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func addForm(t *testing.T, store *memstore.Store, year int, typ models.EvaluationType, starts time.Time) {
	t.Helper()
	require.NoError(t, store.UpsertForm(context.Background(), &models.Form{Year: year, Type: typ, StartsOn: starts}))
}

func TestCheckGeneratesYearsOpeningToday(t *testing.T) {
	store := memstore.New()
	addForm(t, store, 2025, models.TypeSelf, day(2025, time.March, 1))
	addForm(t, store, 2025, models.TypeChefia, day(2025, time.March, 10))
	addForm(t, store, 2026, models.TypeSelf, day(2026, time.March, 1))

	gen := &fakeGenerator{}
	log, _ := test.NewNullLogger()
	trigger := NewTrigger(store, gen, log)

	got, err := trigger.Check(context.Background(), day(2025, time.March, 1))
	require.NoError(t, err)
	require.Equal(t, []int{2025}, got)
	require.Equal(t, []int{2025}, gen.calls())

	got, err = trigger.Check(context.Background(), day(2025, time.March, 10))
	require.NoError(t, err)
	require.Empty(t, got, "only the earliest start date opens a cycle")
}

func TestCheckSkipsGeneratedYear(t *testing.T) {
	store := memstore.New()
	addForm(t, store, 2025, models.TypeSelf, day(2025, time.March, 1))
	forms, err := store.FormsForYear(context.Background(), 2025)
	require.NoError(t, err)
	_, err = store.FindOrCreateEvaluation(context.Background(), &models.Evaluation{FormID: forms[0].ID, EvaluatedPersonID: 1, Type: models.TypeSelf})
	require.NoError(t, err)

	gen := &fakeGenerator{}
	log, _ := test.NewNullLogger()
	got, err := NewTrigger(store, gen, log).Check(context.Background(), day(2025, time.March, 1))
	require.NoError(t, err)
	require.Empty(t, got)
	require.Empty(t, gen.calls())
}

func TestCheckLogsFailedYear(t *testing.T) {
	store := memstore.New()
	addForm(t, store, 2025, models.TypeSelf, day(2025, time.March, 1))
	addForm(t, store, 2026, models.TypeSelf, day(2025, time.March, 1))

	gen := &fakeGenerator{err: map[int]error{2025: errors.New("missing template")}}
	log, hook := test.NewNullLogger()
	got, err := NewTrigger(store, gen, log).Check(context.Background(), day(2025, time.March, 1))
	require.NoError(t, err)
	require.Equal(t, []int{2026}, got)
	require.Equal(t, []int{2025, 2026}, gen.calls())

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	require.Equal(t, logrus.ErrorLevel, entry.Level)
	require.Equal(t, 2025, entry.Data["year"])
}

func TestRunStopsWithContext(t *testing.T) {
	store := memstore.New()
	addForm(t, store, 2025, models.TypeSelf, day(2025, time.March, 1))

	gen := &fakeGenerator{}
	log, _ := test.NewNullLogger()
	trigger := NewTrigger(store, gen, log)
	trigger.now = func() time.Time { return day(2025, time.March, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trigger.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(gen.calls()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
