// Package console is the terminal front-end of the daemon and the command
// dispatcher shared by every front-end (terminal, control socket, hub).
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"

	"sosai/internal/capture"
	"sosai/internal/dialog"
	"sosai/internal/ipc"
)

var ErrQuit = errors.New("quit")

// Screen is the part of the orchestrator front-ends drive.
type Screen interface {
	StartListening(ctx context.Context) error
	SubmitText(ctx context.Context, text string) error
	SubmitImage(ctx context.Context, img capture.Image) error
	PickImage(ctx context.Context) error
	StopAudio()
	State() dialog.State
}

// Dispatch runs one command. Only "state" produces a result.
func Dispatch(ctx context.Context, s Screen, cmd, arg string) (any, error) {
	switch cmd {
	case ipc.CmdListen:
		return nil, s.StartListening(ctx)
	case ipc.CmdText:
		return nil, s.SubmitText(ctx, arg)
	case ipc.CmdImage:
		img, err := capture.Load(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		return nil, s.SubmitImage(ctx, img)
	case ipc.CmdPick:
		return nil, s.PickImage(ctx)
	case ipc.CmdStop:
		s.StopAudio()
		return nil, nil
	case ipc.CmdState:
		return s.State(), nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

// Parse maps a typed line to a command. Lines starting with "/" are
// commands, anything else is a text submission.
func Parse(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return ipc.CmdText, line
	}
	cmd, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

const help = `/listen        음성으로 말하기
/image <path>  사진 보내기
/pick          사진 고르기
/stop          음성 안내 멈추기
/quit          종료
그 외 입력은 상황 설명으로 보냅니다.`

// Run reads commands from in until EOF, /quit or ctx is done.
func Run(ctx context.Context, in io.Reader, out io.Writer, s Screen) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			cmd, arg := Parse(line)
			switch cmd {
			case "quit", "exit":
				return ErrQuit
			case "help":
				fmt.Fprintln(out, help)
				continue
			}

			if _, err := Dispatch(ctx, s, cmd, arg); err != nil {
				log.Debug("Command failed", "cmd", cmd, "err", err)
				fmt.Fprintln(out, "[오류]", describe(err))
			}
		}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, dialog.ErrEmptyInput):
		return dialog.MsgEmptyInput
	case errors.Is(err, dialog.ErrUnsupportedCapability):
		return dialog.MsgUnsupported
	}
	return err.Error()
}

// Watch prints every state change until states is closed.
func Watch(states <-chan dialog.State, out io.Writer) {
	var prev dialog.State
	for st := range states {
		if text := Render(prev, st); text != "" {
			fmt.Fprint(out, text)
		}
		prev = st
	}
}

// Render describes what changed between two snapshots.
func Render(prev, st dialog.State) string {
	var b strings.Builder

	if st.Phase != prev.Phase || st.Seq != prev.Seq {
		switch st.Phase {
		case dialog.Listening:
			b.WriteString("[듣는 중] 말씀해 주세요...\n")
		case dialog.Submitting:
			if st.Transcript != "" && st.Transcript != prev.Transcript {
				fmt.Fprintf(&b, "[나] %s\n", st.Transcript)
			}
			b.WriteString(dialog.MsgWaiting + "\n")
		case dialog.Error:
			if st.LastError != nil {
				fmt.Fprintf(&b, "[오류] %s\n", st.LastError.Message)
			}
		}
	}

	if st.Answer != "" && st.Answer != prev.Answer {
		fmt.Fprintf(&b, "[답변] %s\n", st.Answer)
	}
	if st.Classification != nil && prev.Classification == nil {
		c := st.Classification
		fmt.Fprintf(&b, "[판정] %s (%.0f%%)\n", c.Label, c.Confidence*100)
		for i, p := range c.TopK {
			fmt.Fprintf(&b, "  %d. %s %.0f%%\n", i+1, p.Label, p.Confidence*100)
		}
	}
	if len(st.Similar) > 0 && len(prev.Similar) == 0 {
		b.WriteString("[비슷한 상황]\n")
		for _, s := range st.Similar {
			if s.Score > 0 {
				fmt.Fprintf(&b, "  - %s (%.2f)\n", s.Label, s.Score)
			} else {
				fmt.Fprintf(&b, "  - %s\n", s.Label)
			}
		}
	}
	if st.AudioURL != "" && st.AudioURL != prev.AudioURL {
		fmt.Fprintf(&b, "[음성] %s\n", st.AudioURL)
	}
	if st.Phase == dialog.Ready && st.LastError != nil && prev.LastError == nil {
		fmt.Fprintf(&b, "[알림] %s\n", st.LastError.Message)
	} else if st.Notice != "" && st.Notice != prev.Notice {
		fmt.Fprintf(&b, "[알림] %s\n", st.Notice)
	}
	return b.String()
}
