package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

var testInput = model.JobInput{Topic: "seo tools", TargetWordCount: 1500, Language: "en"}

// storeFactories returns every backend reachable in this environment.
// The Redis store is skipped when no local Redis answers.
func storeFactories(t *testing.T) map[string]func() *Store {
	t.Helper()
	factories := map[string]func() *Store{
		"memory": NewMemoryStore,
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err == nil {
		t.Cleanup(func() { client.Close() })
		factories["redis"] = func() *Store { return NewRedisStore(client, time.Minute) }
	} else {
		client.Close()
	}
	return factories
}

func uniqueID(t *testing.T) string {
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()
			id := uniqueID(t)
			t.Cleanup(func() { _ = s.Delete(ctx, id) })

			rec, err := s.Create(ctx, id, testInput)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if rec.Status != model.JobStatusPending {
				t.Errorf("expected pending, got %s", rec.Status)
			}
			if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
				t.Error("expected timestamps to be set")
			}

			if _, err := s.Create(ctx, id, testInput); !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("expected ErrAlreadyExists, got %v", err)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Input != testInput {
				t.Errorf("input = %+v, want %+v", got.Input, testInput)
			}

			if _, err := s.Get(ctx, "missing-"+id); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_Transitions(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()
			id := uniqueID(t)
			t.Cleanup(func() { _ = s.Delete(ctx, id) })

			if _, err := s.Create(ctx, id, testInput); err != nil {
				t.Fatal(err)
			}

			rec, err := s.SetStatus(ctx, id, model.JobStatusRunning, "gather_sources")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != model.JobStatusRunning || rec.CurrentStage != "gather_sources" {
				t.Errorf("unexpected record %+v", rec)
			}

			rec, err = s.SetStatus(ctx, id, model.JobStatusRunning, "")
			if err != nil {
				t.Fatal(err)
			}
			if rec.CurrentStage != "gather_sources" {
				t.Errorf("empty stage should leave stage unchanged, got %q", rec.CurrentStage)
			}

			rec, err = s.SetStage(ctx, id, "plan")
			if err != nil {
				t.Fatal(err)
			}
			if rec.CurrentStage != "plan" {
				t.Errorf("stage = %q, want plan", rec.CurrentStage)
			}

			rec, err = s.SetError(ctx, id, "boom")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != model.JobStatusFailed || rec.Error == nil || *rec.Error != "boom" {
				t.Errorf("unexpected failed record %+v", rec)
			}

			result := &model.ArticleOutput{ArticleMarkdown: "# Done"}
			rec, err = s.SetResult(ctx, id, result)
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != model.JobStatusCompleted || rec.Error != nil || rec.Result == nil {
				t.Errorf("unexpected completed record %+v", rec)
			}

			got, _ := s.Get(ctx, id)
			if got.Result == nil || got.Result.ArticleMarkdown != "# Done" {
				t.Errorf("result not persisted: %+v", got.Result)
			}
			if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
				t.Error("updatedAt should not precede createdAt")
			}

			// a result only exists while the job is completed
			rec, err = s.SetError(ctx, id, "late failure")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != model.JobStatusFailed || rec.Result != nil {
				t.Errorf("failed record kept its result: %+v", rec)
			}

			if _, err := s.SetResult(ctx, id, result); err != nil {
				t.Fatal(err)
			}
			rec, err = s.SetStatus(ctx, id, model.JobStatusRunning, "gather_sources")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Result != nil {
				t.Errorf("running record kept its result: %+v", rec.Result)
			}
			got, _ = s.Get(ctx, id)
			if got.Result != nil {
				t.Errorf("result still persisted after status change: %+v", got.Result)
			}

			if _, err := s.SetResult(ctx, id, result); err != nil {
				t.Fatal(err)
			}
			rec, err = s.SetStatus(ctx, id, model.JobStatusCompleted, "")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Result == nil {
				t.Error("completed status should keep the result")
			}
		})
	}
}

func TestStore_MissingRecordMutations(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.SetStatus(ctx, "nope", model.JobStatusRunning, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus: expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetError(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetError: expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetResult(ctx, "nope", &model.ArticleOutput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetResult: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "nope"); err != nil {
		t.Errorf("Delete of unknown id should be a no-op, got %v", err)
	}
}

func TestStore_Claim(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()
			id := uniqueID(t)
			t.Cleanup(func() { _ = s.Delete(ctx, id) })

			if _, err := s.Create(ctx, id, testInput); err != nil {
				t.Fatal(err)
			}

			rec, err := s.Claim(ctx, id, "gather_sources")
			if err != nil {
				t.Fatalf("first claim: %v", err)
			}
			if rec.Status != model.JobStatusRunning {
				t.Errorf("expected running, got %s", rec.Status)
			}

			if _, err := s.Claim(ctx, id, "gather_sources"); !errors.Is(err, ErrAlreadyRunning) {
				t.Errorf("expected ErrAlreadyRunning, got %v", err)
			}

			if _, err := s.SetError(ctx, id, "failed once"); err != nil {
				t.Fatal(err)
			}
			rec, err = s.Claim(ctx, id, "gather_sources")
			if err != nil {
				t.Fatalf("claim after failure: %v", err)
			}
			if rec.Error != nil {
				t.Error("claim should clear the previous error")
			}

			if _, err := s.SetResult(ctx, id, &model.ArticleOutput{ArticleMarkdown: "# x"}); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Claim(ctx, id, "gather_sources"); !errors.Is(err, ErrAlreadyCompleted) {
				t.Errorf("expected ErrAlreadyCompleted, got %v", err)
			}
		})
	}
}

func TestMemoryStore_ConcurrentClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "job", testInput); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Claim(ctx, "job", "gather_sources"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful claim, got %d", wins)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "job", testInput); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(ctx, "job")
	rec.Status = model.JobStatusCompleted

	again, _ := s.Get(ctx, "job")
	if again.Status != model.JobStatusPending {
		t.Error("mutating a returned record must not change the store")
	}
}
