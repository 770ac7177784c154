package agent_test

import (
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/agent"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

func TestSessionStore_GetOrCreate(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	us := store.GetOrCreate("user-1")
	if us.ID == "" {
		t.Error("session ID should be set")
	}
	if us.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", us.UserID)
	}
	if us.Quiz.Phase() != quiz.PhaseIdle {
		t.Errorf("Phase = %v, want idle", us.Quiz.Phase())
	}

	if again := store.GetOrCreate("user-1"); again != us {
		t.Error("GetOrCreate should return the existing session")
	}
	if other := store.GetOrCreate("user-2"); other == us {
		t.Error("different users should get different sessions")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestSessionStore_GetAndDelete(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	if _, ok := store.Get("user-1"); ok {
		t.Error("Get() on empty store should miss")
	}

	store.GetOrCreate("user-1")
	if _, ok := store.Get("user-1"); !ok {
		t.Error("Get() should find created session")
	}

	store.Delete("user-1")
	if _, ok := store.Get("user-1"); ok {
		t.Error("Get() should miss after Delete()")
	}
}

func TestSessionStore_ConcurrentGetOrCreate(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	var wg sync.WaitGroup
	results := make([]*agent.UserSession, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.GetOrCreate("same-user")
		}(i)
	}
	wg.Wait()

	for i, us := range results {
		if us != results[0] {
			t.Fatalf("results[%d] is a different session", i)
		}
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestSessionStore_PruneIdle(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	stale := store.GetOrCreate("stale")
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	store.GetOrCreate("fresh")

	busy := store.GetOrCreate("busy")
	busy.UpdatedAt = time.Now().Add(-2 * time.Hour)
	busy.Lock()

	pruned := store.PruneIdle(time.Hour)
	busy.Unlock()

	if pruned != 1 {
		t.Errorf("PruneIdle() = %d, want 1", pruned)
	}
	if _, ok := store.Get("stale"); ok {
		t.Error("stale session should be pruned")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("fresh session should be kept")
	}
	if _, ok := store.Get("busy"); !ok {
		t.Error("locked session should be kept")
	}
}

func TestSessionStore_AcquireSurvivesPruning(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	stop := make(chan struct{})
	var pruner sync.WaitGroup
	pruner.Add(1)
	go func() {
		defer pruner.Done()
		for {
			select {
			case <-stop:
				return
			default:
				store.PruneIdle(0)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				us := store.Acquire("user-1")
				cur, ok := store.Get("user-1")
				us.Unlock()
				if !ok || cur != us {
					t.Error("Acquire returned a session that is no longer in the store")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(stop)
	pruner.Wait()
}

func TestSessionStore_AcquireRefreshesUpdatedAt(t *testing.T) {
	store := agent.NewSessionStore(testCatalog(t))

	us := store.GetOrCreate("user-1")
	us.UpdatedAt = time.Now().Add(-2 * time.Hour)

	got := store.Acquire("user-1")
	got.Unlock()
	if got != us {
		t.Fatal("Acquire should return the existing session")
	}
	if store.PruneIdle(time.Hour) != 0 {
		t.Error("a just-acquired session should not be pruned")
	}
}
