package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tmuxcore/tmuxd/internal/mux"
	"github.com/tmuxcore/tmuxd/internal/server"
)

func TestPackUnpackArgvRoundTrip(t *testing.T) {
	argv := []string{"new-session", "-s", "work"}
	packed := PackArgv(argv)
	got, err := UnpackArgv(packed)
	if err != nil {
		t.Fatalf("UnpackArgv() error = %v", err)
	}
	if len(got) != len(argv) {
		t.Fatalf("UnpackArgv() = %v, want %v", got, argv)
	}
	for i := range argv {
		if got[i] != argv[i] {
			t.Fatalf("UnpackArgv()[%d] = %q, want %q", i, got[i], argv[i])
		}
	}
}

func TestUnpackArgvRejectsBadLength(t *testing.T) {
	if _, err := UnpackArgv([]byte{0, 0}); err == nil {
		t.Fatalf("UnpackArgv(short payload) error = nil, want error")
	}
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := Frame{Type: TypeCommand, PeerID: 7, Payload: PackArgv([]string{"list-sessions"})}
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got.Type != f.Type || got.PeerID != f.PeerID || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("ReadFrame() = %+v, want %+v", got, f)
	}
}

func TestReadFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	var header [12]byte
	binary.LittleEndian.PutUint32(header[8:12], maxFrameBytes+1)
	buf.Write(header[:])
	if _, err := ReadFrame(bufio.NewReader(&buf)); err != ErrFrameTooLarge {
		t.Fatalf("ReadFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func dialAndHandshake(t *testing.T, path string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", path)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	versionPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(versionPayload, ProtocolVersion)
	if err := WriteFrame(conn, Frame{Type: TypeVersion, Payload: versionPayload}); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}
	r := bufio.NewReader(conn)
	reply, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("read VERSION reply: %v", err)
	}
	if reply.Type != TypeVersion {
		t.Fatalf("VERSION reply type = %v, want TypeVersion", reply.Type)
	}
	return conn
}

func TestListenerRunsCommandOverSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-socket")

	srv := server.New(mux.NewManager())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	l := NewListener(path, srv, false)
	if err := l.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	conn := dialAndHandshake(t, path)
	defer conn.Close()

	cmdFrame := Frame{Type: TypeCommand, Payload: PackArgv([]string{"new-session", "-s", "work"})}
	if err := WriteFrame(conn, cmdFrame); err != nil {
		t.Fatalf("write COMMAND: %v", err)
	}

	r := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Type == TypeStderr {
		t.Fatalf("new-session returned error: %s", resp.Payload)
	}
	if resp.Type != TypeStdout {
		t.Fatalf("response type = %v, want TypeStdout", resp.Type)
	}

	if _, ok := srv.Manager.Session("work"); !ok {
		t.Fatalf("session %q was not created", "work")
	}
}

func TestFileProxyReadRoundTrip(t *testing.T) {
	p := newPeer(1, nil)
	go func() {
		for {
			select {
			case f := <-p.out:
				if f.Type != TypeReadOpen {
					return
				}
				id, _, ok := parseStreamFrame(f.Payload)
				if !ok {
					return
				}
				p.handleReadData(streamPayload(id, []byte("hello ")), false)
				p.handleReadData(streamPayload(id, []byte("world")), true)
				return
			case <-p.done:
				return
			}
		}
	}()

	data, err := p.ReadClientFile("/etc/motd", time.Second)
	if err != nil {
		t.Fatalf("ReadClientFile() error = %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("ReadClientFile() = %q, want %q", data, "hello world")
	}
}

func TestFileProxyReadTimesOutWithoutReply(t *testing.T) {
	p := newPeer(2, nil)
	go func() {
		<-p.out
	}()
	if _, err := p.ReadClientFile("/nonexistent", 20*time.Millisecond); err == nil {
		t.Fatalf("ReadClientFile() error = nil, want timeout error")
	}
}

func TestSocketPathUsesTmuxTmpdirAndUID(t *testing.T) {
	old := os.Getenv("TMUX_TMPDIR")
	defer os.Setenv("TMUX_TMPDIR", old)
	os.Setenv("TMUX_TMPDIR", "/tmp/tmuxcore-test")

	p := SocketPath("", "default")
	if filepath.Base(p) != "default" {
		t.Fatalf("SocketPath() = %q, want basename default", p)
	}
	if filepath.Dir(filepath.Dir(p)) != filepath.Clean("/tmp/tmuxcore-test") {
		t.Fatalf("SocketPath() = %q, want under /tmp/tmuxcore-test", p)
	}
}
