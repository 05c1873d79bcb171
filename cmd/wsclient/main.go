// Package main provides an interactive websocket client for exercising the
// game server by hand: it joins the room, prints every broadcast, and turns
// stdin commands into game messages.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hiehoo/pokemmo-server/internal/game/room"
	"github.com/hiehoo/pokemmo-server/internal/transport/ws"
)

const usage = `commands:
  wallet <address>     link a wallet to this session
  move <x> <y>         report a movement update
  stop                 report movement ended
  map <name>           change to another map
  battle [opponent]    report a battle win
  balance              request a balance refresh
  quit                 disconnect and exit
`

func main() {
	addr := flag.String("addr", "ws://localhost:2567/ws", "websocket endpoint of the game server")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("connecting to %s: %v", *addr, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n%s", *addr, usage)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env ws.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				fmt.Printf("connection closed: %v\n", err)
				return
			}
			fmt.Printf("<- %s %s\n", env.Type, string(env.Payload))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		msgType, payload, err := buildMessage(fields)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if msgType == "" {
			return
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("encoding payload: %v\n", err)
			continue
		}
		if err := conn.WriteJSON(ws.Envelope{Type: msgType, Payload: raw}); err != nil {
			fmt.Printf("sending: %v\n", err)
			return
		}
	}
}

// buildMessage maps one command line to a message type and payload. An empty
// type means quit.
func buildMessage(fields []string) (string, any, error) {
	switch fields[0] {
	case "wallet":
		if len(fields) != 2 {
			return "", nil, fmt.Errorf("usage: wallet <address>")
		}
		return room.MsgWalletConnect, room.WalletConnectRequest{WalletAddress: fields[1]}, nil
	case "move":
		if len(fields) != 3 {
			return "", nil, fmt.Errorf("usage: move <x> <y>")
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return "", nil, fmt.Errorf("move: coordinates must be numbers")
		}
		return room.MsgPlayerMoved, room.MoveRequest{X: x, Y: y}, nil
	case "stop":
		return room.MsgPlayerMovementEnded, room.MovementEndedRequest{}, nil
	case "map":
		if len(fields) != 2 {
			return "", nil, fmt.Errorf("usage: map <name>")
		}
		return room.MsgPlayerChangedMap, room.ChangeMapRequest{Map: fields[1]}, nil
	case "battle":
		req := room.BattleWonRequest{}
		if len(fields) > 1 {
			req.Opponent = fields[1]
		}
		return room.MsgBattleWon, req, nil
	case "balance":
		return room.MsgCheckBalance, struct{}{}, nil
	case "quit":
		return "", nil, nil
	default:
		return "", nil, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
	}
}
