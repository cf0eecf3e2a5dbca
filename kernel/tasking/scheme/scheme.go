// Package scheme implements the synchronous IPC channel between a
// scheme server thread and its clients, built on
// kernel/tasking/waitqueue, kernel/sched and kernel/tasking/file.
package scheme

import (
	"sync"

	"github.com/nielsdos/wask/kernel/sched"
	"github.com/nielsdos/wask/kernel/tasking/file"
	"github.com/nielsdos/wask/kernel/tasking/schemeid"
	"github.com/nielsdos/wask/kernel/tasking/waitqueue"
	"github.com/nielsdos/wask/kernel/wasi"
)

// ReplyPayload is the value half of a reply, detached from the TCB slot
// it was read out of.
type ReplyPayload struct {
	Status wasi.Errno
	Value  uint64
}

// Reply is what a scheme's own handle writes to deliver a ReplyPayload
// to a specific blocked thread.
type Reply struct {
	To      sched.ThreadId
	Payload ReplyPayload
}

// CommandData is the payload of a Command sent to a scheme's command
// queue. OpenCommand and ReadCommand are its only two variants today; a
// sealed interface keeps the variant set closed to this package while
// leaving room for more commands.
type CommandData interface {
	isCommandData()
}

// OpenCommand requests that the scheme open a new resource. Flags is
// carried opaquely; this core does not interpret it.
type OpenCommand struct {
	Flags int32
}

func (OpenCommand) isCommandData() {}

// ReadCommand requests a read from an already-opened inner handle.
type ReadCommand struct {
	Handle file.FileHandle
}

func (ReadCommand) isCommandData() {}

// Command is one entry in a scheme's command queue.
type Command struct {
	ThreadID sched.ThreadId
	Payload  CommandData
}

// Scheme is a server-side IPC endpoint: a command queue clients push
// blocking requests onto, and the scheme's own thread drains via Read on
// its own control-channel handle.
type Scheme struct {
	id           schemeid.SchemeId
	commandQueue *waitqueue.WaitQueue[Command]
}

var (
	registryMu sync.Mutex
	registry   = make(map[schemeid.SchemeId]*Scheme)
)

func init() {
	file.SetSchemeResolver(func(id schemeid.SchemeId) (file.SchemeRef, bool) {
		registryMu.Lock()
		defer registryMu.Unlock()
		s, ok := registry[id]
		if !ok {
			return nil, false
		}
		return s, true
	})
}

// New creates and registers a fresh Scheme.
func New() *Scheme {
	s := &Scheme{
		id:           schemeid.New(),
		commandQueue: waitqueue.New[Command](),
	}
	registryMu.Lock()
	registry[s.id] = s
	registryMu.Unlock()
	return s
}

// Close deregisters s. Any FileDescriptor still weakly referencing
// s.ID() will subsequently fail to resolve it.
func (s *Scheme) Close() {
	registryMu.Lock()
	delete(registry, s.id)
	registryMu.Unlock()
}

// ID implements file.SchemeRef.
func (s *Scheme) ID() schemeid.SchemeId {
	return s.id
}

// SendCommandBlocking pushes payload onto s's command queue on behalf
// of t and blocks until a reply arrives. The non-preemptible section
// spans arming the block guard, recording the blocked-on scheme, and
// enqueuing the command, so a wakeup can never race ahead of the
// enqueue.
func (s *Scheme) SendCommandBlocking(t *sched.Thread, payload CommandData) ReplyPayload {
	sched.PreemptDisable()
	guard := sched.ArmBlockGuard(t)
	t.SetBlockedOn(s.id)
	s.commandQueue.PushBack(Command{ThreadID: t.ID(), Payload: payload})
	sched.PreemptEnable()

	guard.Wait()

	t.SetBlockedOn(schemeid.Sentinel())

	status, value := t.Reply().Load()
	return ReplyPayload{Status: status, Value: value}
}

// SendReply delivers reply to its target thread if that thread is still
// blocked on s, then wakes it. A reply to a thread no longer blocked on
// this scheme is dropped and false is returned. The wakeup happens
// after the scheduler lookup's lock is released.
func (s *Scheme) SendReply(reply Reply) bool {
	delivered := sched.WithThread(reply.To, func(receiver *sched.Thread) bool {
		if receiver.BlockedOn() != s.id {
			return false
		}
		receiver.Reply().Store(reply.Payload.Status, reply.Payload.Value)
		return true
	})

	if delivered {
		sched.WakeupAndYield(reply.To)
	}
	return delivered
}

// SendReplies dispatches each reply in replies via SendReply and
// returns the number actually delivered; replies whose target moved on
// are counted out.
func (s *Scheme) SendReplies(replies []Reply) (int, wasi.Errno) {
	delivered := 0
	for _, r := range replies {
		if s.SendReply(r) {
			delivered++
		}
	}
	return delivered, wasi.Success
}

// ReceiveCommandsBlocking drains up to len(buf) queued commands into
// buf, blocking until at least one is available.
func (s *Scheme) ReceiveCommandsBlocking(buf []Command) (int, wasi.Errno) {
	n := s.commandQueue.PopFrontMany(buf)
	return n, wasi.Success
}

// Open requests a new inner handle from the scheme on behalf of t.
func (s *Scheme) Open(t *sched.Thread) (file.FileHandle, wasi.Errno) {
	reply := s.SendCommandBlocking(t, OpenCommand{Flags: 0})
	if reply.Status != wasi.Success {
		return file.FileHandle{}, reply.Status
	}
	return file.InnerHandle(reply.Value), wasi.Success
}

// Read dispatches on handle: the scheme's own handle reads from its
// command queue, any other handle issues a regular read to the scheme's
// owner thread.
func (s *Scheme) Read(t *sched.Thread, handle file.FileHandle, buf []Command) (int, wasi.Errno) {
	if handle.IsOwn() {
		return s.ReceiveCommandsBlocking(buf)
	}
	return s.regularRead(t, handle)
}

// Write dispatches on handle: the scheme's own handle delivers buf as
// replies, any other handle issues a regular write.
func (s *Scheme) Write(t *sched.Thread, handle file.FileHandle, buf []Reply) (int, wasi.Errno) {
	if handle.IsOwn() {
		return s.SendReplies(buf)
	}
	return s.regularWrite(handle)
}

// regularRead issues a blocking Read command for handle and returns the
// reply's value as a byte count.
func (s *Scheme) regularRead(t *sched.Thread, handle file.FileHandle) (int, wasi.Errno) {
	reply := s.SendCommandBlocking(t, ReadCommand{Handle: handle})
	if reply.Status != wasi.Success {
		return 0, reply.Status
	}
	return int(reply.Value), wasi.Success
}

// regularWrite reports success with zero bytes written; data writes to
// an inner handle have no defined transport yet.
func (s *Scheme) regularWrite(file.FileHandle) (int, wasi.Errno) {
	return 0, wasi.Success
}
