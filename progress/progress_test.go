package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsIDBeforeWorkStarts(t *testing.T) {
	hub := NewHub()
	job := hub.Submit()
	require.NotEmpty(t, job.ID)
	_, ok := hub.Job(job.ID)
	require.True(t, ok)
}

func TestAttachReplaysLatestProgress(t *testing.T) {
	hub := NewHub()
	job := hub.Submit()
	job.Report(JobProgress{Status: StatusProcessing, CurrentClip: 1, TotalClips: 3})

	handle, ok := hub.Attach(job.ID)
	require.True(t, ok)
	first := <-handle.Events
	require.Equal(t, StatusProcessing, first.Status)
	require.Equal(t, 1, first.CurrentClip)
}

func TestTerminalEventClosesHandle(t *testing.T) {
	hub := NewHub()
	job := hub.Submit()
	handle, _ := hub.Attach(job.ID)
	<-handle.Events // replay of the initial queued state

	job.Report(JobProgress{Status: StatusDone, CurrentClip: 3, TotalClips: 3})
	final, ok := <-handle.Events
	require.True(t, ok)
	require.True(t, final.IsTerminal())

	_, ok = <-handle.Events
	require.False(t, ok, "channel should be closed after the terminal event")
}

// S6: submit a 3-clip job, attach two listeners, kill one mid-way; the
// survivor must see the full progression including done, the killed one
// must be silently detached (spec.md §8 S6).
func TestS6MultiListenerOneKilledMidway(t *testing.T) {
	hub := NewHub()
	job := hub.Submit()

	survivor, _ := hub.Attach(job.ID)
	victim, _ := hub.Attach(job.ID)
	<-survivor.Events
	<-victim.Events

	job.Report(JobProgress{Status: StatusProcessing, CurrentClip: 1, TotalClips: 3})
	<-survivor.Events
	<-victim.Events

	hub.Detach(job.ID, victim)
	_, ok := <-victim.Events
	require.False(t, ok)

	job.Report(JobProgress{Status: StatusProcessing, CurrentClip: 2, TotalClips: 3})
	job.Report(JobProgress{Status: StatusDone, CurrentClip: 3, TotalClips: 3})

	var statuses []Status
	for p := range survivor.Events {
		statuses = append(statuses, p.Status)
	}
	require.Equal(t, []Status{StatusProcessing, StatusDone}, statuses)
}

func TestDetachIsIdempotent(t *testing.T) {
	hub := NewHub()
	job := hub.Submit()
	handle, _ := hub.Attach(job.ID)
	hub.Detach(job.ID, handle)
	require.NotPanics(t, func() { hub.Detach(job.ID, handle) })
}

func TestCancelClosesDoneChannel(t *testing.T) {
	job := newJob("test")
	select {
	case <-job.Done():
		t.Fatal("should not be done yet")
	default:
	}
	job.Cancel()
	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done() to be closed after Cancel")
	}
	require.True(t, job.Cancelled())
}
