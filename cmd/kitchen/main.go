package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/vibedrinks/api/internal/enum"
	"github.com/vibedrinks/api/internal/kitchen"
)

const usage = `commands:
  ls                      show the board
  go <n>                  run the next action of order n
  search <term>           filter ingredients
  pick <n>                toggle ingredient n
  qty <n> <quantity>      set quantity of ingredient n
  deduct <n> on|off       deduct stock for ingredient n
  ok                      confirm the ingredient dialog
  close                   close the ingredient dialog
  wa <n>                  WhatsApp link of order n's customer
  refresh                 refetch everything
  whoami                  show the logged in user
  quit`

func main() {
	// Optional .env, as the server does
	_ = godotenv.Load()

	apiURL := flag.String("api", "", "API base URL (env API_URL)")
	email := flag.String("email", "", "kitchen user email (env KITCHEN_EMAIL)")
	password := flag.String("password", "", "kitchen user password (env KITCHEN_PASSWORD)")
	flag.Parse()

	if *apiURL == "" {
		*apiURL = os.Getenv("API_URL")
	}
	if *apiURL == "" {
		*apiURL = "http://localhost:8081"
	}
	if *email == "" {
		*email = os.Getenv("KITCHEN_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("KITCHEN_PASSWORD")
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := kitchen.NewClient(*apiURL, nil)
	user, err := client.Login(ctx, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if user.Role != enum.UserRoleKitchen && user.Role != enum.UserRoleAdmin {
		log.Fatalf("User %s has role %s; the dashboard is for kitchen and admin users", *email, user.Role)
	}
	log.Printf("Logged in as %s", user.Name)

	notifier := kitchen.NotifierFunc(func(n kitchen.Notification) {
		bell := ""
		switch n.Tone {
		case kitchen.ToneSingle:
			bell = "\a"
		case kitchen.ToneMulti:
			bell = "\a\a\a"
		}
		fmt.Printf("%s>> %s\n", bell, n.Title)
	})

	ctrl := kitchen.NewController(client, notifier, kitchen.DefaultConfig())
	sub := kitchen.NewSubscriber(wsURL(*apiURL), client.AccessToken, ctrl)

	go func() {
		if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: live channel stopped: %v", err)
		}
	}()
	go func() {
		readCommands(os.Stdin, ctrl, client)
		stop()
	}()

	fmt.Println(usage)
	ctrl.Run(ctx) //nolint:errcheck
}

func wsURL(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/orders"
}

func readCommands(in io.Reader, ctrl *kitchen.Controller, client *kitchen.Client) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		v := ctrl.Snapshot()

		switch fields[0] {
		case "quit", "exit":
			return
		case "ls":
			render(os.Stdout, v)
		case "go":
			if o, ok := orderAt(v, fields); ok {
				ctrl.Trigger(o.ID)
			}
		case "search":
			ctrl.SetSearch(strings.Join(fields[1:], " "))
		case "pick":
			if id, ok := candidateAt(v, fields); ok {
				ctrl.Toggle(id)
			}
		case "qty":
			if id, ok := candidateAt(v, fields); ok && len(fields) > 2 {
				if q, ok := parseQuantity(fields[2]); ok {
					ctrl.SetQuantity(id, q)
				} else {
					fmt.Println("quantity must be a whole number")
				}
			}
		case "deduct":
			if id, ok := candidateAt(v, fields); ok && len(fields) > 2 {
				ctrl.SetDeduct(id, fields[2] == "on")
			}
		case "ok":
			ctrl.Confirm()
		case "close":
			ctrl.CloseDialog()
		case "wa":
			if o, ok := orderAt(v, fields); ok {
				if link, ok := kitchen.WhatsAppLink(o.UserWhatsapp); ok {
					fmt.Println(link)
				} else {
					fmt.Println("no phone number")
				}
			}
		case "refresh":
			ctrl.Refresh()
		case "whoami":
			if u, err := client.Me(context.Background()); err != nil {
				fmt.Printf("whoami: %v\n", err)
			} else {
				fmt.Printf("%s (%s)\n", u.Name, u.Role)
			}
		default:
			fmt.Println(usage)
		}
	}
}

// numbered lists the actionable orders in the order they are rendered.
func numbered(v kitchen.View) []kitchen.OrderView {
	var out []kitchen.OrderView
	out = append(out, v.Accepted...)
	out = append(out, v.Preparing...)
	return append(out, v.Ready...)
}

func orderAt(v kitchen.View, fields []string) (kitchen.OrderView, bool) {
	orders := numbered(v)
	if len(fields) < 2 {
		return kitchen.OrderView{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(orders) {
		fmt.Println("no such order")
		return kitchen.OrderView{}, false
	}
	return orders[n-1], true
}

// parseQuantity rejects input outside the int32 range instead of wrapping.
func parseQuantity(s string) (int32, bool) {
	q, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(q), true
}

func candidateAt(v kitchen.View, fields []string) (uuid.UUID, bool) {
	if v.Dialog == nil || len(fields) < 2 {
		fmt.Println("no ingredient dialog open")
		return uuid.Nil, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(v.Dialog.Candidates) {
		fmt.Println("no such ingredient")
		return uuid.Nil, false
	}
	return v.Dialog.Candidates[n-1].ID, true
}

func render(w io.Writer, v kitchen.View) {
	state := "offline"
	if v.Connected {
		state = "live"
	}
	fmt.Fprintf(w, "[%s, polling every %s]\n", state, v.PollInterval)

	i := 0
	for _, col := range []struct {
		title  string
		orders []kitchen.OrderView
	}{
		{"NEW", v.Accepted},
		{"IN PRODUCTION", v.Preparing},
		{"READY", v.Ready},
	} {
		fmt.Fprintf(w, "== %s (%d)\n", col.title, len(col.orders))
		for _, o := range col.orders {
			i++
			action := "-"
			if o.Action != nil {
				action = o.Action.Label
			}
			if o.Pending {
				action += " (sending)"
			}
			fmt.Fprintf(w, "%2d. %s %-8s %-10s %6s ago  [%s]\n",
				i, o.ID.String()[:8], o.OrderType, o.UserName, time.Since(o.Since).Round(time.Second), action)
			for _, item := range o.Items {
				fmt.Fprintf(w, "      %dx %s\n", item.Quantity, item.ProductName)
			}
		}
	}

	if d := v.Dialog; d != nil {
		fmt.Fprintf(w, "-- ingredients used for %s (search %q)\n", d.ItemName, d.Search)
		picked := make(map[uuid.UUID]kitchen.SelectedIngredient)
		for _, s := range d.Selected {
			picked[s.ProductID] = s
		}
		for j, p := range d.Candidates {
			mark := " "
			extra := ""
			if s, ok := picked[p.ID]; ok {
				mark = "x"
				extra = fmt.Sprintf(" qty %d", s.Quantity)
				if !s.ShouldDeductStock {
					extra += " no deduction"
				}
			}
			fmt.Fprintf(w, "  [%s] %d. %s (stock %d)%s\n", mark, j+1, p.Name, p.Stock, extra)
		}
		if len(d.Selected) == 0 {
			fmt.Fprintln(w, "  ok: continue without ingredients")
		} else {
			fmt.Fprintf(w, "  ok: confirm %d ingredient(s)\n", len(d.Selected))
		}
	}
}
