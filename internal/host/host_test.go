package host

import (
	"bytes"
	"testing"
	"time"

	"github.com/pollux006/bytefs-go/internal/cache"
	"github.com/pollux006/bytefs-go/internal/event"
	"github.com/pollux006/bytefs-go/internal/ftl"
	"github.com/pollux006/bytefs-go/internal/nand"
)

func newTestHost(t *testing.T) (*Host, func()) {
	t.Helper()
	p := nand.DefaultParams()
	dev := nand.NewDevice(p)
	backend := nand.NewArenaBackend(p.TotalPages, nand.PGSZ)
	f := ftl.New(ftl.Config{Device: dev, Backend: backend})
	buf := cache.NewBuffer(cache.NewLRUEngine(16), f)
	pipeline := event.NewPipeline(event.FTLDispatcher{FTL: f}, 64)
	h := New(pipeline, buf, &p)
	return h, pipeline.Close
}

func TestNvmeIssueWriteThenRead(t *testing.T) {
	h, closeFn := newTestHost(t)
	defer closeFn()

	data := bytes.Repeat([]byte{0x5A}, nand.PGSZ*2)
	if _, err := h.NvmeIssue(true, 0, 2, data); err != nil {
		t.Fatalf("write issue: %v", err)
	}

	out := make([]byte, nand.PGSZ*2)
	n, err := h.NvmeIssue(false, 0, 2, out)
	if err != nil {
		t.Fatalf("read issue: %v", err)
	}
	if n != 2 {
		t.Fatalf("NvmeIssue returned %d, want 2", n)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("read data does not match what was written")
	}
}

func TestNewNvmeCmdStampsFieldsAndNSID(t *testing.T) {
	buf := make([]byte, nand.PGSZ)
	cmd := NewNvmeCmd(NvmeCmdWrite, 5, 2, buf)

	if cmd.Opcode != NvmeCmdWrite || cmd.LBA != 5 || cmd.NLB != 2 {
		t.Fatalf("NewNvmeCmd did not stamp (op,lba,nlb) correctly: %+v", cmd)
	}
	if cmd.NSID != 1 {
		t.Fatalf("NSID = %d, want 1", cmd.NSID)
	}
	if len(cmd.PRP1) != len(buf) {
		t.Fatal("PRP1 should carry the payload buffer")
	}
}

func TestNvmeIssueRejectsOutOfRange(t *testing.T) {
	h, closeFn := newTestHost(t)
	defer closeFn()

	buf := make([]byte, nand.PGSZ)
	_, err := h.NvmeIssue(true, uint64(h.params.TotalPages), 1, buf)
	if err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestNvmeIssueNoWaitFiresCallback(t *testing.T) {
	h, closeFn := newTestHost(t)
	defer closeFn()

	done := make(chan error, 1)
	data := bytes.Repeat([]byte{1}, nand.PGSZ)
	err := h.NvmeIssueNoWait(true, 0, 1, data, nil, func(r *event.Request) { done <- r.Err }, false)
	if err != nil {
		t.Fatalf("NvmeIssueNoWait: %v", err)
	}

	select {
	case cbErr := <-done:
		if cbErr != nil {
			t.Fatalf("completion callback reported error: %v", cbErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("non-blocking write never completed")
	}
}

func TestByteIssueWriteReadUnaligned(t *testing.T) {
	h, closeFn := newTestHost(t)
	defer closeFn()

	data := []byte("hello, byte-addressable world")
	if err := h.ByteIssue(true, nand.PGSZ+13, len(data), data); err != nil {
		t.Fatalf("byte write: %v", err)
	}

	out := make([]byte, len(data))
	if err := h.ByteIssue(false, nand.PGSZ+13, len(out), out); err != nil {
		t.Fatalf("byte read: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("byte read-after-write mismatch: got %q, want %q", out, data)
	}
}

func TestNvmeIssueSectorWaitReadModifyWrite(t *testing.T) {
	h, closeFn := newTestHost(t)
	defer closeFn()

	// Write a full page of a known pattern first, so the RMW path has
	// something real to preserve around the unaligned sector write.
	pagePattern := bytes.Repeat([]byte{0xCC}, nand.PGSZ)
	if _, err := h.NvmeIssue(true, 0, 1, pagePattern); err != nil {
		t.Fatalf("seed page write: %v", err)
	}

	patch := bytes.Repeat([]byte{0x11}, nand.SectorSize)
	if err := h.NvmeIssueSectorWait(true, 3, 1, patch); err != nil {
		t.Fatalf("sector write: %v", err)
	}

	whole := make([]byte, nand.PGSZ)
	if _, err := h.NvmeIssue(false, 0, 1, whole); err != nil {
		t.Fatalf("readback: %v", err)
	}
	if !bytes.Equal(whole[3*nand.SectorSize:4*nand.SectorSize], patch) {
		t.Fatal("patched sector does not match what was written")
	}
	if !bytes.Equal(whole[:3*nand.SectorSize], pagePattern[:3*nand.SectorSize]) {
		t.Fatal("sectors before the patch should be preserved by the RMW")
	}
	if !bytes.Equal(whole[4*nand.SectorSize:], pagePattern[4*nand.SectorSize:]) {
		t.Fatal("sectors after the patch should be preserved by the RMW")
	}
}
