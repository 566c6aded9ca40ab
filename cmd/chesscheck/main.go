package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/park285/Cheese-chess-arena/internal/chessclient"
	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	info = color.New(color.FgCyan).SprintFunc()
)

func main() {
	baseURL := strings.TrimSpace(os.Getenv("CHESS_CLIENT_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	watch := os.Getenv("CHESS_CHECK_WATCH") != ""

	client := chessclient.NewClient(baseURL, chessclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("%s /healthz: %v", fail("FAIL"), err)
	}
	fmt.Printf("%s /healthz\n", ok("OK"))

	created, err := client.CreateGame(ctx, chessdto.CreateGameRequest{
		WhitePlayerID: "chesscheck",
		Opponent:      &chessdto.OpponentInfo{Color: "black"},
	})
	if err != nil {
		log.Fatalf("%s create game: %v", fail("FAIL"), err)
	}
	id := created.Game.ID
	fmt.Printf("%s create game id=%s black=%s\n", ok("OK"), info(id), created.Game.BlackPlayerID)

	sel, err := client.Select(ctx, id, "chesscheck", "e2")
	if err != nil {
		log.Fatalf("%s select e2: %v", fail("FAIL"), err)
	}
	fmt.Printf("%s select e2 -> %s\n", ok("OK"), strings.Join(sel.Highlighted, ","))

	var follower *chessclient.Follower
	if watch {
		follower = chessclient.NewFollower(client, id, "chesscheck")
		if err := follower.Start(ctx); err != nil {
			log.Printf("%s stream: %v", fail("FAIL"), err)
			follower = nil
		} else {
			defer follower.Close(context.Background())
			fmt.Printf("%s stream snapshot ply=%d\n", ok("OK"), follower.Session().Ply())
		}
	}

	summary, err := client.Move(ctx, chessdto.MoveRequest{GameID: id, PlayerID: "chesscheck", Move: chessdto.MoveInput{From: "e2", To: "e4"}})
	if err != nil {
		log.Fatalf("%s move e2e4: %v (code=%s)", fail("FAIL"), err, chessclient.Code(err))
	}
	if summary.Applied == nil {
		log.Fatalf("%s move e2e4: no applied move in response", fail("FAIL"))
	}
	fmt.Printf("%s move %s\n", ok("OK"), summary.Applied.SAN)
	if summary.Computer != nil {
		fmt.Printf("%s reply %s\n", ok("OK"), summary.Computer.SAN)
	}

	// An illegal move must come back as a domain error
	_, err = client.Move(ctx, chessdto.MoveRequest{GameID: id, PlayerID: "chesscheck", Move: chessdto.MoveInput{From: "e4", To: "e8"}})
	if code := chessclient.Code(err); code == "" {
		log.Fatalf("%s illegal move accepted", fail("FAIL"))
	} else {
		fmt.Printf("%s illegal move rejected code=%s\n", ok("OK"), code)
	}

	if follower != nil {
		time.Sleep(500 * time.Millisecond)
		fmt.Printf("%s follower fen=%s\n", ok("OK"), follower.Session().FEN())
	}

	pgn, err := client.PGN(ctx, id)
	if err != nil {
		log.Fatalf("%s pgn: %v", fail("FAIL"), err)
	}
	fmt.Printf("%s pgn\n%s\n", ok("OK"), pgn)
}
