package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

func subscribe(t *testing.T, h *Hub, jobID string) *Client {
	t.Helper()
	c := &Client{JobID: jobID, Send: make(chan []byte, 8)}
	h.Register(c)
	deadline := time.Now().Add(time.Second)
	for !h.HasSubscribers(jobID) {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return c
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_BroadcastStage(t *testing.T) {
	h := NewHub()
	go h.Run()
	c := subscribe(t, h, "job-1")

	h.BroadcastStage("job-1", "validate", 2)

	var msg model.WSStageMessage
	if err := json.Unmarshal(receive(t, c), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != model.WSMessageTypeStage || msg.Stage != "validate" || msg.RevisionsLeft != 2 || msg.Status != model.JobStatusRunning {
		t.Errorf("message = %+v", msg)
	}
}

func TestHub_BroadcastErrorOnlyReachesJob(t *testing.T) {
	h := NewHub()
	go h.Run()
	mine := subscribe(t, h, "job-1")
	other := subscribe(t, h, "job-2")

	h.BroadcastError("job-1", "VALIDATION_FAILED", "Validation failed")

	var msg model.WSErrorMessage
	if err := json.Unmarshal(receive(t, mine), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("code = %q", msg.Error.Code)
	}

	select {
	case data := <-other.Send:
		t.Errorf("unrelated job received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_NoSubscribersDoesNotBlock(t *testing.T) {
	h := NewHub()
	// Run is not started; sends must still return
	for i := 0; i < 1000; i++ {
		h.BroadcastComplete("nobody", map[string]int{"i": i})
	}
	if h.HasSubscribers("nobody") {
		t.Error("unexpected subscribers")
	}
}
