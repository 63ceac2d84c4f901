package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	DirIn  = "in"
	DirOut = "out"
)

var (
	ErrDirection = errors.New("trace: direction must be in or out")
	ErrFrame     = errors.New("trace: frame is not JSON")
)

// Entry is one line of a trace file.
type Entry struct {
	Seq   uint64          `json:"seq"`
	Time  time.Time       `json:"time"`
	Dir   string          `json:"dir"`
	Frame json.RawMessage `json:"frame"`
}

// PacketTrace records every websocket frame of a slot's connection into
// hourly zstd JSONL files named packets-<slot>-<yyyy-mm-dd-hh>.jsonl.zst.
// The client never reads it back.
type PacketTrace struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu   sync.Mutex
	seq  uint64
	hour string
	f    *os.File
	enc  *zstd.Encoder
	bw   *bufio.Writer
	je   *json.Encoder

	in, out int
}

func NewPacketTrace(dir, slot string) *PacketTrace {
	prefix := "packets"
	if s := fileSafe(slot); s != "" {
		prefix += "-" + s
	}
	return &PacketTrace{baseDir: dir, prefix: prefix, now: time.Now}
}

// fileSafe keeps slot names usable as a file name component.
func fileSafe(slot string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(slot))
}

// Record appends one frame. dir is DirIn or DirOut.
func (t *PacketTrace) Record(dir string, frame []byte) error {
	if dir != DirIn && dir != DirOut {
		return fmt.Errorf("%w: %q", ErrDirection, dir)
	}
	if !json.Valid(frame) {
		return ErrFrame
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	if hour := now.Format("2006-01-02-15"); hour != t.hour {
		if err := t.openLocked(hour); err != nil {
			return err
		}
	}
	t.seq++
	e := Entry{Seq: t.seq, Time: now, Dir: dir, Frame: append(json.RawMessage(nil), frame...)}
	if err := t.je.Encode(e); err != nil {
		return err
	}
	if err := t.bw.Flush(); err != nil {
		return err
	}
	// Flush a zstd block per frame so a crash loses at most the frame in flight.
	if err := t.enc.Flush(); err != nil {
		return err
	}
	if dir == DirIn {
		t.in++
	} else {
		t.out++
	}
	return nil
}

// Counts reports how many frames were recorded in each direction.
func (t *PacketTrace) Counts() (in, out int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.in, t.out
}

func (t *PacketTrace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *PacketTrace) openLocked(hour string) error {
	if err := t.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(t.baseDir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(t.baseDir, t.prefix+"-"+hour+".jsonl.zst")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	t.f, t.enc, t.hour = f, enc, hour
	t.bw = bufio.NewWriter(enc)
	t.je = json.NewEncoder(t.bw)
	return nil
}

func (t *PacketTrace) closeLocked() error {
	if t.f == nil {
		return nil
	}
	err := t.bw.Flush()
	if cerr := t.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	t.f, t.enc, t.bw, t.je, t.hour = nil, nil, nil, nil, ""
	return err
}
