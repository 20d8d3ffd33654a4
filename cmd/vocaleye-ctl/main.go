package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"vocaleye/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 2*time.Minute, "Reply timeout")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vocaleye-ctl [flags] trigger|cancel|reload|say <text>\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	msg := ipc.ControlMessage{Cmd: ipc.CmdTrigger}
	if len(args) > 0 {
		msg.Cmd = args[0]
		msg.Text = strings.Join(args[1:], " ")
	}
	if msg.Cmd == ipc.CmdSay && msg.Text == "" {
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.Send(ctx, *socket, msg)
	if err != nil {
		fmt.Println("vocaleye-daemon not running:", err)
		os.Exit(1)
	}
	fmt.Println(reply.Message)
	if !reply.OK {
		os.Exit(1)
	}
}
