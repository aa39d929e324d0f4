package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"sosai/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	timeout := cli.Duration("timeout", 10*time.Second, "Reply timeout")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: sosai-ctl [flags] listen | text <words...> | image <path> | pick | stop | state")
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{
		Cmd: cli.Arg(0),
		Arg: strings.Join(cli.Args()[1:], " "),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.Send(ctx, *socket, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sosai:", err)
		os.Exit(1)
	}
	if len(reply.Data) > 0 {
		fmt.Println(string(reply.Data))
	}
}
