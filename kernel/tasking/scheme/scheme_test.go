package scheme

import (
	"testing"
	"time"

	"github.com/nielsdos/wask/kernel/sched"
	"github.com/nielsdos/wask/kernel/tasking/file"
	"github.com/nielsdos/wask/kernel/wasi"
)

// TestOpenRoundTrip blocks a client on Open while the scheme's own
// thread receives the command and replies.
func TestOpenRoundTrip(t *testing.T) {
	s := New()
	defer s.Close()

	clientDone := make(chan file.FileHandle, 1)
	clientErr := make(chan wasi.Errno, 1)

	sched.Spawn(func(client *sched.Thread) {
		h, errno := s.Open(client)
		clientDone <- h
		clientErr <- errno
	})

	sched.Spawn(func(server *sched.Thread) {
		buf := make([]Command, 1)
		n, errno := s.Read(server, file.OwnHandle, buf)
		if errno != wasi.Success || n != 1 {
			t.Errorf("server Read: n=%d errno=%v", n, errno)
			return
		}
		open, ok := buf[0].Payload.(OpenCommand)
		if !ok {
			t.Errorf("expected OpenCommand, got %T", buf[0].Payload)
			return
		}
		_ = open
		s.Write(server, file.OwnHandle, []Reply{{
			To:      buf[0].ThreadID,
			Payload: ReplyPayload{Status: wasi.Success, Value: 99},
		}})
	})

	select {
	case h := <-clientDone:
		if h.IsOwn() || h.Value() != 99 {
			t.Fatalf("client received handle value %d, want inner handle 99", h.Value())
		}
	case <-time.After(time.Second):
		t.Fatal("Open did not complete")
	}
	if errno := <-clientErr; errno != wasi.Success {
		t.Fatalf("Open returned errno %v, want Success", errno)
	}
}

// TestSendReplyDropsWhenNotBlockedOnScheme: a reply addressed to a
// thread that is not (or no longer) blocked on this scheme must be
// silently dropped rather than delivered.
func TestSendReplyDropsWhenNotBlockedOnScheme(t *testing.T) {
	s := New()
	defer s.Close()
	other := New()
	defer other.Close()

	started := make(chan sched.ThreadId, 1)
	release := make(chan struct{})
	id := sched.Spawn(func(t *sched.Thread) {
		t.SetBlockedOn(other.ID())
		started <- t.ID()
		<-release
	})
	targetID := <-started

	delivered := s.SendReply(Reply{To: id, Payload: ReplyPayload{Status: wasi.Success, Value: 1}})
	if delivered {
		t.Fatal("SendReply delivered a reply to a thread blocked on a different scheme")
	}
	_ = targetID
	close(release)
}

// TestSendReplyUnknownThreadIsNoOp covers a reply addressed to a thread
// id the scheduler no longer knows about (already exited).
func TestSendReplyUnknownThreadIsNoOp(t *testing.T) {
	s := New()
	defer s.Close()

	delivered := s.SendReply(Reply{To: sched.ThreadId(1 << 40), Payload: ReplyPayload{Status: wasi.Success}})
	if delivered {
		t.Fatal("SendReply reported delivery to an unknown thread id")
	}
}

// TestSendRepliesReturnsDeliveredCount: SendReplies reports how many of
// the supplied replies actually reached a blocked thread.
func TestSendRepliesReturnsDeliveredCount(t *testing.T) {
	s := New()
	defer s.Close()

	release := make(chan struct{})
	started := make(chan sched.ThreadId, 1)
	sched.Spawn(func(t *sched.Thread) {
		t.SetBlockedOn(s.ID())
		started <- t.ID()
		<-release
	})
	blockedID := <-started

	n, errno := s.SendReplies([]Reply{
		{To: blockedID, Payload: ReplyPayload{Status: wasi.Success, Value: 7}},
		{To: sched.ThreadId(1 << 40), Payload: ReplyPayload{Status: wasi.Success}},
	})
	if errno != wasi.Success {
		t.Fatalf("SendReplies errno = %v, want Success", errno)
	}
	if n != 1 {
		t.Fatalf("SendReplies delivered %d, want 1", n)
	}
	close(release)
}

// TestRegularWriteIsNoOp: a data write to an inner handle reports zero
// bytes written and success.
func TestRegularWriteIsNoOp(t *testing.T) {
	s := New()
	defer s.Close()

	sched.Spawn(func(client *sched.Thread) {
		n, errno := s.Write(client, file.InnerHandle(1), nil)
		if n != 0 || errno != wasi.Success {
			t.Errorf("Write(inner) = (%d, %v), want (0, Success)", n, errno)
		}
	})
	time.Sleep(10 * time.Millisecond)
}
