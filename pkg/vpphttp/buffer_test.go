package vpphttp

import "testing"

func TestHTTPBufferInlineDrainsInBursts(t *testing.T) {
	var b HTTPBuffer
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	b.InitInline(data, 40)

	segs, n := b.GetSegs(0)
	if n != 40 {
		t.Fatalf("first burst n = %d, want 40", n)
	}
	if len(segs) != 1 || len(segs[0].Data) != 40 {
		t.Fatalf("unexpected segs: %+v", segs)
	}
	b.Drain(n)

	if b.IsDrained() {
		t.Fatal("buffer reports drained after first burst")
	}
	if b.Remaining() != 60 {
		t.Errorf("Remaining = %d, want 60", b.Remaining())
	}

	segs, n = b.GetSegs(0)
	b.Drain(n)
	segs, n = b.GetSegs(0)
	b.Drain(n)

	if !b.IsDrained() {
		t.Fatal("buffer should be fully drained after three bursts (40+40+20) of 100 bytes")
	}
	_ = segs

	b.Free()
	if b.Remaining() != 0 {
		t.Errorf("Remaining after Free = %d, want 0", b.Remaining())
	}
}

func TestHTTPBufferPointerNeverCopies(t *testing.T) {
	var b HTTPBuffer
	region := []byte("application-owned-region")
	b.InitPointer(region, 1024)

	segs, n := b.GetSegs(0)
	if n != int64(len(region)) {
		t.Fatalf("n = %d, want %d", n, len(region))
	}
	if &segs[0].Data[0] != &region[0] {
		t.Error("pointer-variant GetSegs copied the region instead of referencing it")
	}
	b.Drain(n)
	if !b.IsDrained() {
		t.Fatal("expected drained after consuming full pointer region")
	}

	b.Free()
	if b.pointer != nil {
		t.Error("Free did not clear the pointer reference")
	}
}

func TestHTTPBufferFreeResetsPointerKey(t *testing.T) {
	var b HTTPBuffer
	b.InitInline([]byte("x"), 16)
	b.fromPointerKey = 7
	b.Free()
	if b.fromPointerKey != 0 {
		t.Errorf("fromPointerKey = %d after Free, want 0", b.fromPointerKey)
	}
}

func TestHTTPBufferGetSegsEmptyWhenDrained(t *testing.T) {
	var b HTTPBuffer
	b.InitInline([]byte("abc"), 16)
	b.Drain(3)
	segs, n := b.GetSegs(0)
	if segs != nil || n != 0 {
		t.Errorf("GetSegs on drained buffer = %v/%d, want nil/0", segs, n)
	}
}
