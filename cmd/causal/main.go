package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/drpcorg/causal"
	"github.com/drpcorg/causal/clock"
	"github.com/ergochat/readline"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("lamport"),
	readline.PcItem("vector"),
	readline.PcItem("fifo"),
	readline.PcItem("add"),
	readline.PcItem("spawn"),
	readline.PcItem("send"),
	readline.PcItem("bcast"),
	readline.PcItem("history"),
	readline.PcItem("state"),
	readline.PcItem("list"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// sim keeps one live system per clock discipline; mode picks the one
// the routing commands talk to.
type sim struct {
	mode string
	lam  *causal.LamportSystem
	vec  *causal.VectorSystem
	fifo *causal.FifoSystem
}

func newSim() *sim {
	opts := causal.Options{}
	return &sim{
		mode: "lamport",
		lam:  causal.NewLamportSystem(opts),
		vec:  causal.NewVectorSystem(opts),
		fifo: causal.NewFifoSystem(opts),
	}
}

func (s *sim) add(id clock.ProcessID) (err error) {
	switch s.mode {
	case "lamport":
		_, err = s.lam.AddProcess(id)
	case "vector":
		_, err = s.vec.AddProcess(id)
	case "fifo":
		_, err = s.fifo.AddProcess(id)
	}
	return
}

func (s *sim) ids() []clock.ProcessID {
	switch s.mode {
	case "vector":
		return s.vec.ProcessIDs()
	case "fifo":
		return s.fifo.ProcessIDs()
	default:
		return s.lam.ProcessIDs()
	}
}

func (s *sim) history(id clock.ProcessID) (*causal.History, error) {
	switch s.mode {
	case "lamport":
		if p, ok := s.lam.Process(id); ok {
			return p.History(), nil
		}
	case "vector":
		if p, ok := s.vec.Process(id); ok {
			return p.History(), nil
		}
	case "fifo":
		if p, ok := s.fifo.Process(id); ok {
			return p.History(), nil
		}
	}
	return nil, fmt.Errorf("unknown process %s", id)
}

func (s *sim) state(id clock.ProcessID) (string, error) {
	switch s.mode {
	case "lamport":
		if p, ok := s.lam.Process(id); ok {
			return fmt.Sprintf("time %d", p.Now()), nil
		}
	case "vector":
		if p, ok := s.vec.Process(id); ok {
			return p.Vec().String(), nil
		}
	case "fifo":
		if p, ok := s.fifo.Process(id); ok {
			return fmt.Sprintf("seq %d, %d blocked", p.Seq(), p.Blocked()), nil
		}
	}
	return "", fmt.Errorf("unknown process %s", id)
}

func stamp(e causal.Event) string {
	switch {
	case e.Vec != nil:
		return e.Vec.String()
	case e.Seq != 0:
		return fmt.Sprintf("#%d", e.Seq)
	default:
		return fmt.Sprintf("%d", e.Time)
	}
}

func showHistory(w io.Writer, id clock.ProcessID, hist *causal.History) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "history of %s\n", id)
	_, _ = fmt.Fprintln(tw, "EVENT\tFROM\tTO\tSTAMP\tCONTENT")
	for _, e := range hist.Events() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Kind, e.From, e.To, stamp(e), e.Content)
	}
	_ = tw.Flush()
}

const usage = `commands:
  lamport | vector | fifo    switch clock discipline
  add <id>                   register a process
  spawn                      register a process under a minted id
  send <from> <to> <text>    route a message (lamport, vector)
  bcast <from> <text>        broadcast a message (fifo)
  history <id>               print a process's event history
  state <id>                 print a process's clock state
  list                       print registered processes
  exit | quit`

func main() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/causal.readline.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	s := newSim()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		args := strings.Split(line, " ")
		cmd := args[0]
		args = args[1:]
		err = nil
		switch cmd {
		case "":
		case "help":
			fmt.Println(usage)
		case "lamport", "vector", "fifo":
			s.mode = cmd
			fmt.Printf("discipline: %s\n", s.mode)
		case "add":
			if len(args) != 1 {
				err = fmt.Errorf("usage: add <id>")
				break
			}
			err = s.add(clock.ProcessID(args[0]))
		case "spawn":
			id := causal.NewProcessID()
			if err = s.add(id); err == nil {
				fmt.Println(id)
			}
		case "send":
			if len(args) < 3 {
				err = fmt.Errorf("usage: send <from> <to> <text>")
				break
			}
			from, to := clock.ProcessID(args[0]), clock.ProcessID(args[1])
			text := strings.Join(args[2:], " ")
			switch s.mode {
			case "lamport":
				err = s.lam.Send(from, to, text)
			case "vector":
				err = s.vec.Send(from, to, text)
			default:
				err = fmt.Errorf("send needs lamport or vector mode, use bcast")
			}
		case "bcast":
			if len(args) < 2 {
				err = fmt.Errorf("usage: bcast <from> <text>")
				break
			}
			if s.mode != "fifo" {
				err = fmt.Errorf("bcast needs fifo mode")
				break
			}
			err = s.fifo.Broadcast(clock.ProcessID(args[0]), strings.Join(args[1:], " "))
		case "history":
			if len(args) != 1 {
				err = fmt.Errorf("usage: history <id>")
				break
			}
			var hist *causal.History
			if hist, err = s.history(clock.ProcessID(args[0])); err == nil {
				showHistory(os.Stdout, clock.ProcessID(args[0]), hist)
			}
		case "state":
			if len(args) != 1 {
				err = fmt.Errorf("usage: state <id>")
				break
			}
			var st string
			if st, err = s.state(clock.ProcessID(args[0])); err == nil {
				fmt.Println(st)
			}
		case "list":
			for _, id := range s.ids() {
				fmt.Println(id)
			}
		case "exit", "quit":
			os.Exit(0)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}
}
