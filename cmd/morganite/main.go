// Command morganite runs one overlay chat/routing node.
//
// Usage:
//
//	morganite [listen-address]
//
// listen-address defaults to 127.0.0.1:6142 (spec §6.4). This is
// deliberately not a rendered TUI: input/output is line-oriented over
// stdin/stdout, the minimal front-end the Non-goals leave room for
// (no keybindings, history, or scrolling region).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/heartbeat"
	"github.com/AnnsAnns/morganite/internal/node"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/ratelimit"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
)

const defaultListenAddr = "127.0.0.1:6142"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "morganite:", err)
		os.Exit(1)
	}
}

func run() error {
	listenStr := defaultListenAddr
	if len(os.Args) > 1 {
		listenStr = os.Args[1]
	}
	local, err := addr.Parse(listenStr)
	if err != nil {
		return fmt.Errorf("listen address: %w", err)
	}

	log, err := telemetry.New()
	if err != nil {
		log = telemetry.Nop()
	}

	ui := queue.NewUnbounded[events.Event]()
	shared := state.New(local, local.String(), ui, log)

	acceptLimiter := ratelimit.New(10, 20)
	acceptor, err := node.Listen(local, shared, acceptLimiter)
	if err != nil {
		return err
	}
	go func() {
		if err := acceptor.Serve(); err != nil {
			log.Errorw("acceptor stopped", "err", err.Error())
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go heartbeat.New(shared).Run(ctx)

	broadcastLimiter := ratelimit.New(1, 3)
	mediator := node.NewMediator(shared, broadcastLimiter)

	fmt.Printf("morganite listening on %s\n", local.String())
	fmt.Println("commands: connect <addr>, msg <addr> <text>, broadcast <text>, contacts, nick <name>, quit, help")

	go printEvents(ui)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := parseLine(scanner.Text())
		switch cmd.(type) {
		case events.Help:
			fmt.Println("commands: connect <addr>, msg <addr> <text>, broadcast <text>, contacts, nick <name>, quit, help")
			continue
		case events.Unknown:
			fmt.Println("unrecognized command, try 'help'")
			continue
		case events.Quit:
			mediator.Dispatch(ctx, cmd)
			<-mediator.Quit()
			acceptor.Close()
			return nil
		}
		mediator.Dispatch(ctx, cmd)
	}
	return scanner.Err()
}

// printEvents drains the UI queue and renders each event as a line. It
// races its own doorbell against nothing else, the simplest instance of
// the same unbounded-queue consumer pattern peerconn.Task uses.
func printEvents(ui *queue.Unbounded[events.Event]) {
	for range ui.Wait() {
		for {
			ev, ok := ui.TryPop()
			if !ok {
				break
			}
			renderEvent(ev)
		}
	}
}

func renderEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.Join:
		fmt.Printf("* %s joined\n", e.Nickname)
	case events.Leave:
		fmt.Printf("* %s left\n", e.Nickname)
	case events.MessageToTUI:
		fmt.Printf("<%s> %s\n", e.Nickname, e.Text)
	case events.ContactsSnapshot:
		fmt.Println("known routes:")
		for target, entry := range e.Table {
			fmt.Printf("  %s via %s (%d hops)\n", target.String(), entry.NextHop.String(), entry.HopCount)
		}
	case events.LogToTerminal:
		fmt.Println(e.Line)
	}
}

// parseLine turns one line of stdin into a Command (spec §6.2/§4.7's
// command table: connect, msg, broadcast, contacts, nick, quit, help).
func parseLine(line string) events.Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return events.Unknown{Raw: line}
	}

	switch fields[0] {
	case "connect":
		if len(fields) != 2 {
			return events.Unknown{Raw: line}
		}
		a, err := addr.Parse(fields[1])
		if err != nil {
			return events.Unknown{Raw: line}
		}
		return events.Connect{Addr: a}

	case "msg":
		if len(fields) < 3 {
			return events.Unknown{Raw: line}
		}
		a, err := addr.Parse(fields[1])
		if err != nil {
			return events.Unknown{Raw: line}
		}
		return events.SendMessage{Dest: a, Text: strings.Join(fields[2:], " ")}

	case "broadcast":
		if len(fields) < 2 {
			return events.Unknown{Raw: line}
		}
		return events.Broadcast{Text: strings.Join(fields[1:], " ")}

	case "contacts":
		return events.Contacts{}

	case "nick":
		if len(fields) != 2 {
			return events.Unknown{Raw: line}
		}
		return events.SetOwnNick{Nickname: fields[1]}

	case "quit":
		return events.Quit{}

	case "help":
		return events.Help{}

	default:
		return events.Unknown{Raw: line}
	}
}
