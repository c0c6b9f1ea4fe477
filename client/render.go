package client

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a plain-text picture of the view.
func Render(w io.Writer, v View) {
	if v.Notice != "" {
		fmt.Fprintln(w, v.Notice)
	}
	if v.Error != "" {
		fmt.Fprintf(w, "error: %s\n", v.Error)
	}

	switch v.Phase() {
	case PhaseUnjoined:
		fmt.Fprintln(w, "Not in a room.")
	case PhaseJoining:
		fmt.Fprintf(w, "Joining %s as %s...\n", v.RoomCode, v.Name)
	case PhaseLobby:
		renderLobby(w, v)
		if v.LeaderboardVisible {
			renderStandings(w, v, "Leaderboard")
		}
	case PhaseQuestion, PhaseReveal:
		renderQuestion(w, v)
		if v.LeaderboardVisible {
			renderStandings(w, v, "Leaderboard")
		}
	case PhaseEnded:
		fmt.Fprintln(w, "Quiz over!")
		renderStandings(w, v, "Final standings")
	}
}

func renderLobby(w io.Writer, v View) {
	players := v.Lobby()
	capacity := ""
	if v.MaxPlayers > 0 {
		capacity = fmt.Sprintf("/%d", v.MaxPlayers)
	}
	role := "player"
	if v.Host {
		role = "host"
	}
	fmt.Fprintf(w, "Room %s (%s) - %d%s players\n", v.RoomCode, role, len(players), capacity)
	for _, p := range players {
		marker := " "
		if p.ID == v.PlayerID {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %s\n", marker, p.Name)
	}
}

func renderQuestion(w io.Writer, v View) {
	q := v.Question
	if q.Total > 0 {
		fmt.Fprintf(w, "Question %d/%d", q.Index+1, q.Total)
	} else {
		fmt.Fprint(w, "Question")
	}
	if v.Phase() == PhaseQuestion {
		fmt.Fprintf(w, " - %ds left", v.TimeLeft)
	}
	fmt.Fprintf(w, "\n%s\n", q.Text)

	for i, opt := range q.Options {
		marker := " "
		switch {
		case v.AllAnswered && opt == v.CorrectAnswer:
			marker = "+"
		case opt == v.Selected:
			marker = ">"
		}
		fmt.Fprintf(w, " %s %d) %s\n", marker, i+1, opt)
	}

	if v.AllAnswered {
		fmt.Fprintf(w, "Correct answer: %s\n", v.CorrectAnswer)
		if v.Selected != "" && v.Selected == v.CorrectAnswer {
			fmt.Fprintln(w, "You got it!")
		}
	}
}

func renderStandings(w io.Writer, v View, title string) {
	fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	for i, e := range v.Standings() {
		arrow := ""
		switch v.RankChange(e.ID, i) {
		case RankUp:
			arrow = " ^"
		case RankDown:
			arrow = " v"
		}
		fmt.Fprintf(w, "%2d. %-20s %6d%s\n", i+1, e.Name, e.Score, arrow)
	}
}
