// Command tmux is the CLI a user actually types: it never touches session
// state itself, only dials tmuxd's local socket, issues one command or
// attaches a live terminal, and renders whatever comes back (§4.J/§6).
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/tmuxcore/tmuxd/internal/client"
	"github.com/tmuxcore/tmuxd/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tmux: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	socketName := "default"
	socketPath := ""
	i := 0
loop:
	for i < len(args) {
		switch args[i] {
		case "-L":
			if i+1 >= len(args) {
				return fmt.Errorf("-L requires an argument")
			}
			socketName, i = args[i+1], i+2
		case "-S":
			if i+1 >= len(args) {
				return fmt.Errorf("-S requires an argument")
			}
			socketPath, i = args[i+1], i+2
		default:
			break loop
		}
	}
	command := args[i:]

	if socketPath == "" {
		cfg, err := config.Load(config.DefaultPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir := cfg.SocketDir
		if dir == "" {
			dir = config.DefaultSocketDir()
		}
		socketPath = filepath.Join(dir, socketName)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect %s (is tmuxd running?): %w", socketPath, err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	if err := handshake(conn, reader); err != nil {
		return err
	}
	if err := sendIdentify(conn); err != nil {
		return err
	}

	argv := command
	if len(argv) == 0 {
		argv = []string{"attach-session"}
	}
	attachIntent := isAttachCommand(argv)

	if err := client.WriteFrame(conn, client.Frame{Type: client.TypeCommand, Payload: client.PackArgv(argv)}); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	ready, err := awaitInitialResponse(conn, reader, attachIntent)
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}
	return attach(conn, reader)
}

// handshake sends the mandatory first VERSION frame and confirms the
// server accepted it, per §6's wire protocol.
func handshake(conn net.Conn, reader *bufio.Reader) error {
	payload := make([]byte, 4)
	payload[0] = byte(client.ProtocolVersion)
	if err := client.WriteFrame(conn, client.Frame{Type: client.TypeVersion, Payload: payload}); err != nil {
		return fmt.Errorf("send version frame: %w", err)
	}
	reply, err := client.ReadFrame(reader)
	if err != nil {
		return fmt.Errorf("read version reply: %w", err)
	}
	if reply.Type != client.TypeVersion {
		return fmt.Errorf("server rejected protocol version")
	}
	return nil
}

// sendIdentify tells the server about this client's terminal before any
// command frame, the way a real attach needs TERM/cwd known up front.
func sendIdentify(conn net.Conn) error {
	term := os.Getenv("TERM")
	if term == "" {
		term = "xterm-256color"
	}
	cwd, _ := os.Getwd()
	frames := []client.Frame{
		{Type: client.TypeIdentifyTerm, Payload: []byte(term)},
		{Type: client.TypeIdentifyCwd, Payload: []byte(cwd)},
		{Type: client.TypeIdentifyDone},
	}
	if name := ttyName(); name != "" {
		frames = append([]client.Frame{{Type: client.TypeIdentifyTTY, Payload: []byte(name)}}, frames...)
	}
	for _, f := range frames {
		if err := client.WriteFrame(conn, f); err != nil {
			return fmt.Errorf("send identify frame: %w", err)
		}
	}
	return nil
}

func ttyName() string {
	if name, err := os.Readlink("/proc/self/fd/0"); err == nil {
		return name
	}
	return ""
}

func isAttachCommand(argv []string) bool {
	switch argv[0] {
	case "attach-session", "attach":
		return true
	case "new-session":
		for _, a := range argv[1:] {
			if a == "-d" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// awaitInitialResponse reads frames for a bounded window after a command
// is sent: a STDERR frame is always an error; a READY frame means the
// command put this peer into an attached pane and the caller should
// switch into interactive mode; anything else (or the window simply
// elapsing, as one-shot commands that produce no output do) ends the
// one-shot path. The command's own STDOUT (e.g. an attach's resolved
// target string) is printed only when the caller didn't ask to attach.
func awaitInitialResponse(conn net.Conn, reader *bufio.Reader, attachIntent bool) (ready bool, err error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return false, err
		}
		frame, err := client.ReadFrame(reader)
		if err != nil {
			if attachIntent {
				return false, fmt.Errorf("no response from server")
			}
			return false, nil
		}
		switch frame.Type {
		case client.TypeStderr:
			fmt.Fprint(os.Stderr, string(frame.Payload))
			return false, fmt.Errorf("command failed")
		case client.TypeStdout:
			if !attachIntent {
				fmt.Print(string(frame.Payload))
			}
		case client.TypeReady:
			return true, nil
		}
		if !attachIntent {
			return false, nil
		}
	}
}

// attach puts the local terminal into raw mode and pumps STDIN/RESIZE
// frames to the server while rendering STDOUT frames, until the server
// detaches this peer or the connection drops.
func attach(conn net.Conn, reader *bufio.Reader) error {
	_ = conn.SetReadDeadline(time.Time{})

	inFD := int(os.Stdin.Fd())
	interactive := isatty.IsTerminal(uintptr(inFD))
	var restore *term.State
	if interactive {
		st, err := term.MakeRaw(inFD)
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}
		restore = st
		defer term.Restore(inFD, restore)
	}

	sendResize(conn, inFD)
	if interactive {
		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				sendResize(conn, inFD)
			}
		}()
	}

	stdinErrs := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if werr := client.WriteFrame(conn, client.Frame{Type: client.TypeStdin, Payload: buf[:n]}); werr != nil {
					stdinErrs <- werr
					return
				}
			}
			if err != nil {
				stdinErrs <- err
				return
			}
		}
	}()

	frames := make(chan client.Frame, 64)
	frameErrs := make(chan error, 1)
	go func() {
		for {
			frame, err := client.ReadFrame(reader)
			if err != nil {
				frameErrs <- err
				return
			}
			frames <- frame
		}
	}()

	for {
		select {
		case frame := <-frames:
			switch frame.Type {
			case client.TypeStdout:
				os.Stdout.Write(frame.Payload)
			case client.TypeStderr:
				os.Stderr.Write(frame.Payload)
			case client.TypeDetach, client.TypeDetachKill, client.TypeExit:
				if interactive {
					fmt.Fprintln(os.Stdout, "\r\n[detached]")
				}
				return nil
			}
		case <-frameErrs:
			if interactive {
				fmt.Fprintln(os.Stdout, "\r\n[connection closed]")
			}
			return nil
		case err := <-stdinErrs:
			if err != nil && err != io.EOF {
				return fmt.Errorf("stdin: %w", err)
			}
			return nil
		}
	}
}

func sendResize(conn net.Conn, fd int) {
	cols, rows := 80, 24
	if isatty.IsTerminal(uintptr(fd)) {
		if w, h, err := term.GetSize(fd); err == nil {
			cols, rows = w, h
		}
	}
	payload := make([]byte, 8)
	putU32(payload[0:4], uint32(cols))
	putU32(payload[4:8], uint32(rows))
	_ = client.WriteFrame(conn, client.Frame{Type: client.TypeResize, Payload: payload})
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
