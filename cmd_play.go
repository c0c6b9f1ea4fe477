package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"livequiz/client"
	"livequiz/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const playHelp = `commands:
  <number>      answer with that option
  join <code> [name]
                join a room after leaving or being removed
  start         start the quiz (host)
  next          next question (host)
  end           end the quiz (host)
  kick <id>     remove a player (host)
  state         ask for the room state
  leave         leave the room
  quit          disconnect`

func newPlayCmd() *cobra.Command {
	var (
		server    string
		name      string
		room      string
		hostToken string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a room from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || room == "" {
				return fmt.Errorf("--name and --room are required")
			}
			return play(cmd.Context(), server, name, room, hostToken, os.Stdin, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&server, "server", "http://localhost:8080", "livequiz server URL")
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&room, "room", "", "room code")
	fs.StringVar(&hostToken, "host-token", "", "host token returned when the room was created")

	return cmd
}

// session serializes access to the view between the reader and stdin.
type session struct {
	mu   sync.Mutex
	view client.View
	out  io.Writer
	// name is only touched by the stdin loop.
	name string
}

func (s *session) update(fn func(client.View) client.View) client.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = fn(s.view)
	return s.view
}

func (s *session) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out)
	client.Render(s.out, s.view)
}

func play(ctx context.Context, server, name, room, hostToken string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := client.Dial(ctx, server)
	if err != nil {
		return err
	}
	defer conn.Close()

	s := &session{out: out, name: name}
	s.update(func(v client.View) client.View { return v.StartJoin(name, room) })
	if err := conn.JoinRoom(room, name, hostToken); err != nil {
		return err
	}
	s.render()

	done := make(chan error, 1)
	go func() {
		for {
			ev, err := conn.Next()
			if err != nil {
				done <- err
				return
			}
			v := s.update(func(v client.View) client.View { return client.Fold(v, ev) })
			if ev.Type == services.EventTimeLeft && v.TimeLeft%5 != 0 {
				continue
			}
			s.render()
			if v.Notice != "" {
				fmt.Fprintln(out, "type 'join <code>' to join a room")
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	fmt.Fprintln(out, playHelp)
	for {
		select {
		case err := <-done:
			if err != nil {
				log.Debug().Err(err).Msg("connection closed")
			}
			return nil
		case line, ok := <-lines:
			if !ok || line == "quit" {
				return nil
			}
			if err := runPlayCommand(conn, s, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func runPlayCommand(conn *client.Conn, s *session, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	v := s.view
	s.mu.Unlock()
	code := v.RoomCode

	switch fields[0] {
	case "join":
		if len(fields) < 2 {
			return fmt.Errorf("usage: join <code> [name]")
		}
		name := s.name
		if len(fields) > 2 {
			name = strings.Join(fields[2:], " ")
		}
		s.name = name
		s.update(func(v client.View) client.View { return v.StartJoin(name, fields[1]) })
		return conn.JoinRoom(fields[1], name, "")
	case "start":
		return conn.StartQuiz(code)
	case "next":
		return conn.NextQuestion(code)
	case "end":
		return conn.EndQuiz(code)
	case "state":
		return conn.RequestState(code)
	case "leave":
		return conn.Leave(code)
	case "kick":
		if len(fields) < 2 {
			return fmt.Errorf("usage: kick <player id>")
		}
		return conn.Kick(code, fields[1])
	case "help":
		fmt.Fprintln(s.out, playHelp)
		return nil
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("unknown command %q", fields[0])
	}
	if v.Question == nil || n < 1 || n > len(v.Question.Options) {
		return fmt.Errorf("no option %d", n)
	}
	option := v.Question.Options[n-1]
	var ok bool
	s.update(func(v client.View) client.View {
		v, ok = v.Select(option)
		return v
	})
	if !ok {
		return fmt.Errorf("answer already locked in")
	}
	return conn.Answer(code, option)
}
