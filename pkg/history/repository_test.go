package history

import (
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "installs.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_RecordAndLast(t *testing.T) {
	repo := newTestRepo(t)

	if last, err := repo.Last("/data/update.zip"); err != nil || last != nil {
		t.Fatalf("fresh package: got (%+v, %v), want (nil, nil)", last, err)
	}

	a := &Attempt{
		PackagePath: "/data/update.zip",
		Attempt:     0,
		Result:      ResultRetry,
		TimeTotal:   12,
		LogPath:     "/tmp/last_install",
	}
	if err := repo.Record(a); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if a.ID == 0 {
		t.Error("expected assigned row id")
	}

	last, err := repo.Last("/data/update.zip")
	if err != nil {
		t.Fatalf("last failed: %v", err)
	}
	if last == nil || last.Result != ResultRetry || last.Attempt != 0 {
		t.Errorf("last mismatch: %+v", last)
	}
}

func TestRepository_LastPicksHighestAttempt(t *testing.T) {
	repo := newTestRepo(t)

	for i, result := range []string{ResultRetry, ResultRetry, ResultSuccess} {
		if err := repo.Record(&Attempt{
			PackagePath: "/data/update.zip",
			Attempt:     i,
			Result:      result,
		}); err != nil {
			t.Fatal(err)
		}
	}

	last, err := repo.Last("/data/update.zip")
	if err != nil {
		t.Fatal(err)
	}
	if last.Attempt != 2 || last.Result != ResultSuccess {
		t.Errorf("got %+v, want attempt 2 success", last)
	}
}

func TestRepository_DuplicateAttemptRejected(t *testing.T) {
	repo := newTestRepo(t)

	a := &Attempt{PackagePath: "/p.zip", Attempt: 0, Result: ResultError}
	if err := repo.Record(a); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(&Attempt{PackagePath: "/p.zip", Attempt: 0, Result: ResultError}); err == nil {
		t.Error("duplicate (package, attempt) should be rejected")
	}
}

func TestRepository_ListByPackage(t *testing.T) {
	repo := newTestRepo(t)

	repo.Record(&Attempt{PackagePath: "/a.zip", Attempt: 0, Result: ResultRetry, WipeCache: true})
	repo.Record(&Attempt{PackagePath: "/a.zip", Attempt: 1, Result: ResultSuccess})
	repo.Record(&Attempt{PackagePath: "/b.zip", Attempt: 0, Result: ResultCorrupt})

	attempts, err := repo.ListByPackage("/a.zip")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}
	if !attempts[0].WipeCache || attempts[1].WipeCache {
		t.Errorf("wipe_cache round-trip mismatch: %+v", attempts)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d total attempts, want 3", len(all))
	}
}
