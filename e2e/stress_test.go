package e2e

import (
	"fmt"
	"sync"
	"testing"

	"github.com/alekspetrov/taskbot/internal/adapters/messenger"
	"github.com/alekspetrov/taskbot/internal/conversation"
	"github.com/alekspetrov/taskbot/internal/store"
)

// TestStress_ConcurrentSenders verifies that many senders posting at once
// neither lose tasks nor cross their lists.
func TestStress_ConcurrentSenders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	const (
		numSenders = 20
		perSender  = 10
	)

	b := newBot(t, nil)

	var wg sync.WaitGroup
	for s := range numSenders {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			psid := fmt.Sprintf("psid-%d", s)
			for i := range perSender {
				if !b.post(t, text(psid, fmt.Sprintf("task %d of %s", i, psid))) {
					return
				}
			}
		}(s)
	}
	wg.Wait()
	b.outbox.Wait()

	if n, err := b.tasks.Count(t.Context()); err != nil || n != numSenders*perSender {
		t.Fatalf("Count = %d, %v; want %d", n, err, numSenders*perSender)
	}
	for s := range numSenders {
		psid := fmt.Sprintf("psid-%d", s)
		tasks, err := b.tasks.ListBySender(t.Context(), psid)
		if err != nil {
			t.Fatalf("ListBySender failed: %v", err)
		}
		if len(tasks) != perSender {
			t.Errorf("%s has %d tasks, want %d", psid, len(tasks), perSender)
		}
		for i, task := range tasks {
			if want := fmt.Sprintf("task %d of %s", i, psid); task.Text != want {
				t.Errorf("%s task %d = %q, want %q", psid, i, task.Text, want)
			}
		}
	}
	if got := b.graph.Total(); got != numSenders*perSender {
		t.Errorf("graph received %d replies, want %d", got, numSenders*perSender)
	}
}

// TestStress_ConcurrentDeletes races delete postbacks for every task against
// each other and checks each task is removed exactly once.
func TestStress_ConcurrentDeletes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	const numTasks = 30

	b := newBot(t, nil)
	const psid = "psid-owner"
	for i := range numTasks {
		if _, err := b.tasks.Create(t.Context(), psid, fmt.Sprintf("task %d", i)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	tasks, _ := b.tasks.ListBySender(t.Context(), psid)

	var (
		mu      sync.Mutex
		deleted = make(map[string]int)
	)
	b.tasks.OnChange(func(c store.Change) {
		if c.Type != store.ChangeDeleted {
			return
		}
		mu.Lock()
		deleted[c.Task.ID]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, task := range tasks {
		for range 2 {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				b.post(t, postback(psid, conversation.DeletePayload(id)))
			}(task.ID)
		}
	}
	wg.Wait()
	b.outbox.Wait()

	if n, _ := b.tasks.Count(t.Context()); n != 0 {
		t.Errorf("Count = %d after deleting everything", n)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, task := range tasks {
		if deleted[task.ID] != 1 {
			t.Errorf("task %s deleted %d times", task.ID, deleted[task.ID])
		}
	}

	// Every postback is confirmed, including the ones that lost the race.
	want := conversation.DefaultCatalog().Lookup(conversation.ResponseTaskDeleted).Text
	replies := b.graph.Messages(psid)
	if len(replies) != 2*numTasks {
		t.Fatalf("got %d replies, want %d", len(replies), 2*numTasks)
	}
	for _, r := range replies {
		if r.Text != want {
			t.Errorf("reply = %q, want %q", r.Text, want)
			break
		}
	}
}

// TestStress_BurstWithinLimit checks that concurrent bursts inside the
// configured allowance are never throttled.
func TestStress_BurstWithinLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	b := newBot(t, &messenger.RateLimitConfig{Enabled: true, MessagesPerMinute: 600, BurstSize: 50})

	var wg sync.WaitGroup
	for s := range 5 {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := range 10 {
				b.post(t, text(fmt.Sprintf("psid-%d", s), fmt.Sprintf("item %d", i)))
			}
		}(s)
	}
	wg.Wait()
	b.outbox.Wait()

	if n, _ := b.tasks.Count(t.Context()); n != 50 {
		t.Errorf("Count = %d, want 50", n)
	}
	if got := b.graph.Total(); got != 50 {
		t.Errorf("graph received %d replies, want 50", got)
	}
}
