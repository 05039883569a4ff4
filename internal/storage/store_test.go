package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

type backendFactory func(t *testing.T) Store

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite_memory": func(t *testing.T) Store {
			db, err := NewTestDB()
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return db
		},
		"sqlite_file": func(t *testing.T) Store {
			db, err := New(context.Background(), filepath.Join(t.TempDir(), "data", "omamori.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return db
		},
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func sampleProfile() *UserProfile {
	p := NewUserProfile("U1")
	p.UpdatedAt = testNow
	p.HeirAddress = "0x1234567890123456789012345678901234567890"
	p.AddTarget(SavingsTarget{
		ID:          "t-1",
		Amount:      30000,
		Goal:        "京都旅行",
		CreatedAt:   testNow,
		TargetDate:  testNow.AddDate(0, 0, 30),
		DailyTarget: 1000,
	})
	p.AddTarget(SavingsTarget{
		ID:          "t-2",
		Amount:      100000,
		Goal:        "貯金",
		CreatedAt:   testNow,
		TargetDate:  testNow.AddDate(0, 0, 90),
		DailyTarget: 1112,
	})
	return p
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			_, err := s.GetProfile(ctx, "U1")
			require.ErrorIs(t, err, domerrors.ErrNotFound)

			want := sampleProfile()
			require.NoError(t, s.SaveProfile(ctx, want))

			got, err := s.GetProfile(ctx, "U1")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_SaveProfileReplacesTargets(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			p := sampleProfile()
			require.NoError(t, s.SaveProfile(ctx, p))

			p.Targets = p.Targets[1:]
			p.HeirAddress = ""
			require.NoError(t, s.SaveProfile(ctx, p))

			got, err := s.GetProfile(ctx, "U1")
			require.NoError(t, err)
			require.Len(t, got.Targets, 1)
			assert.Equal(t, "t-2", got.Targets[0].ID)
			assert.Empty(t, got.HeirAddress)
		})
	}
}

func TestStore_FamilyRoundTrip(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			_, err := s.GetFamily(ctx, "G1")
			require.ErrorIs(t, err, domerrors.ErrNotFound)

			g := NewFamilyGroup("G1", "U2", testNow)
			g.AddMember("U1")
			g.SavingsGoal = 100000
			g.TotalSaved = 2500
			require.NoError(t, s.SaveFamily(ctx, g))

			got, err := s.GetFamily(ctx, "G1")
			require.NoError(t, err)
			assert.Equal(t, g, got)
			assert.Equal(t, []string{"U1", "U2"}, got.Members)

			got.AddMember("U3")
			got.TotalSaved += 500
			require.NoError(t, s.SaveFamily(ctx, got))

			again, err := s.GetFamily(ctx, "G1")
			require.NoError(t, err)
			assert.Equal(t, int64(3000), again.TotalSaved)
			assert.Len(t, again.Members, 3)
		})
	}
}

func TestStore_Validation(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			assert.ErrorIs(t, s.SaveProfile(ctx, nil), domerrors.ErrInvalidInput)
			assert.ErrorIs(t, s.SaveProfile(ctx, &UserProfile{}), domerrors.ErrInvalidInput)
			assert.ErrorIs(t, s.SaveFamily(ctx, &FamilyGroup{}), domerrors.ErrInvalidInput)
		})
	}
}

func TestStore_StatsAndPing(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			require.NoError(t, s.Ping(ctx))

			stats, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, Stats{}, stats)

			require.NoError(t, s.SaveProfile(ctx, sampleProfile()))
			require.NoError(t, s.SaveProfile(ctx, &UserProfile{UserID: "U9", UpdatedAt: testNow}))
			require.NoError(t, s.SaveFamily(ctx, NewFamilyGroup("G1", "U1", testNow)))

			stats, err = s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, Stats{Profiles: 2, Families: 1}, stats)
		})
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := factory(t)

			var wg sync.WaitGroup
			for i := range 10 {
				wg.Go(func() {
					p := NewUserProfile("U1")
					p.UpdatedAt = testNow
					p.AddTarget(SavingsTarget{Amount: int64(i + 1), Goal: "貯金", CreatedAt: testNow, TargetDate: testNow})
					assert.NoError(t, s.SaveProfile(ctx, p))
				})
			}
			wg.Wait()

			got, err := s.GetProfile(ctx, "U1")
			require.NoError(t, err)
			assert.Len(t, got.Targets, 1, "last write wins")
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	p := sampleProfile()
	require.NoError(t, s.SaveProfile(ctx, p))
	p.Targets[0].Amount = 1

	got, err := s.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.Targets[0].Amount)

	got.Targets[0].Amount = 2
	again, err := s.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), again.Targets[0].Amount)
}

func TestDB_AssignsTargetIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := NewTestDB()
	require.NoError(t, err)
	defer db.Close()

	p := NewUserProfile("U1")
	p.UpdatedAt = testNow
	p.AddTarget(SavingsTarget{Amount: 500, Goal: "貯金", CreatedAt: testNow, TargetDate: testNow})
	require.NoError(t, db.SaveProfile(ctx, p))

	got, err := db.GetProfile(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, got.Targets, 1)
	assert.Len(t, got.Targets[0].ID, 36)
}

func TestDB_CreateSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := New(ctx, filepath.Join(dir, "src.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveProfile(ctx, sampleProfile()))

	dest := filepath.Join(dir, "snap.db")
	require.NoError(t, db.CreateSnapshot(ctx, dest))
	// A stale file at the destination is replaced.
	require.NoError(t, db.CreateSnapshot(ctx, dest))

	restored, err := New(ctx, dest)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, sampleProfile(), got)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "o.db")})
	require.NoError(t, err)
	assert.IsType(t, &DB{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Backend: BackendRedis, RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendRedis, RedisURL: "://bad"})
	assert.Error(t, err)
}

type recordedOp struct{ op, status string }

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) RecordStoreOp(op, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{op, status})
}

func TestInstrument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	base := NewMemoryStore()
	assert.Same(t, Store(base), Instrument(base, nil))

	rec := &fakeRecorder{}
	s := Instrument(base, rec)

	_, _ = s.GetProfile(ctx, "missing")
	_ = s.SaveProfile(ctx, sampleProfile())
	_ = s.SaveFamily(ctx, &FamilyGroup{})
	_, _ = s.GetFamily(ctx, "G1")

	assert.Equal(t, []recordedOp{
		{"get_profile", "not_found"},
		{"save_profile", "success"},
		{"save_family", "error"},
		{"get_family", "not_found"},
	}, rec.ops)

	inst, ok := s.(*Instrumented)
	require.True(t, ok)
	assert.Same(t, Store(base), inst.Unwrap())
}
