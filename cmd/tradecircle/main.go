package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tradecircle/tradecircle/internal/api"
	"github.com/tradecircle/tradecircle/internal/config"
	"github.com/tradecircle/tradecircle/internal/log"
	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/session"
)

func main() {
	var (
		configPath string
		serverURL  string
		wsURL      string
		username   string
		password   string
	)

	rootCmd := &cobra.Command{
		Use:   "tradecircle",
		Short: "TradeCircle trading-groups client",
		Long:  "Interactive client for TradeCircle: shared trade ledgers, join-request approvals and group chat.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("warn")

			cfg, _, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if wsURL != "" {
				cfg.WSURL = wsURL
			}
			if username == "" || password == "" {
				return fmt.Errorf("--user and --password are required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := api.New(cfg.ServerURL, cfg.RequestTimeout, logger)
			sess, err := session.Login(ctx, client, cfg.WSURL, username, password, logger)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			defer sess.Logout(context.Background())

			fmt.Printf("Logged in as %s. Type 'help' for commands.\n", username)
			return repl(ctx, sess)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "service base URL")
	rootCmd.Flags().StringVar(&wsURL, "ws", "", "chat websocket URL")
	rootCmd.Flags().StringVar(&username, "user", "", "username")
	rootCmd.Flags().StringVar(&password, "password", "", "password")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func repl(ctx context.Context, sess *session.Session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
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
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				return nil
			}
			if gs := sess.Active(); gs != nil {
				handleGroupCommand(ctx, sess, gs, line)
			} else {
				handleTopCommand(ctx, sess, line)
			}
		}
	}
}

func handleTopCommand(ctx context.Context, sess *session.Session, line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "help":
		fmt.Println(`Commands:
  groups                      list your groups
  create <name> :: <desc>     create a group
  search                      list all groups with membership flags
  join <group-id>             request to join a group
  open <group-id>             open a group (ledger, requests, chat)
  quit                        exit`)
	case "groups":
		groups, err := sess.Groups(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		for _, g := range groups {
			fmt.Printf("  %s  %s (%d members)\n", g.ID, g.Name, len(g.Members))
		}
	case "create":
		name, desc, found := strings.Cut(rest, "::")
		if !found {
			fmt.Println("usage: create <name> :: <description>")
			return
		}
		g, err := sess.CreateGroup(ctx, strings.TrimSpace(name), strings.TrimSpace(desc))
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("created group %s (%s)\n", g.Name, g.ID)
	case "search":
		listings, err := sess.Search(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		for _, l := range listings {
			flag := ""
			if l.IsMember {
				flag = " [member]"
			} else if l.HasPendingRequest {
				flag = " [request pending]"
			}
			fmt.Printf("  %s  %s%s\n", l.ID, l.Name, flag)
		}
	case "join":
		if rest == "" {
			fmt.Println("usage: join <group-id>")
			return
		}
		if err := sess.RequestToJoin(ctx, strings.TrimSpace(rest)); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("join request submitted")
	case "open":
		openGroup(ctx, sess, strings.TrimSpace(rest))
	default:
		fmt.Println("unknown command; type 'help'")
	}
}

func openGroup(ctx context.Context, sess *session.Session, groupID string) {
	if groupID == "" {
		fmt.Println("usage: open <group-id>")
		return
	}
	groups, err := sess.Groups(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	var target *model.Group
	for i := range groups {
		if groups[i].ID == groupID {
			target = &groups[i]
			break
		}
	}
	if target == nil {
		fmt.Println("you are not a member of that group")
		return
	}

	gs, err := sess.Open(ctx, *target)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	gs.OnMessage(func(m model.ChatMessage) {
		fmt.Printf("[%s] %s: %s\n", target.Name, m.User, m.Body)
	})
	gs.OnNotice(func(err error) {
		fmt.Println("chat notice:", err)
	})

	fmt.Printf("Opened %s. Messages send as chat; /help for group commands, /back to leave.\n", target.Name)
	for _, m := range gs.Messages() {
		fmt.Printf("[%s] %s: %s\n", target.Name, m.User, m.Body)
	}
}

func handleGroupCommand(ctx context.Context, sess *session.Session, gs *session.GroupSession, line string) {
	if !strings.HasPrefix(line, "/") {
		if err := gs.SendMessage(ctx, line); err != nil {
			fmt.Println("error:", err)
		}
		return
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	switch cmd {
	case "help":
		fmt.Println(`Group commands:
  /trades                          list the group ledger
  /net                             show the group net position
  /trade <SYM> <QTY> <PRICE> <buy|sell>   record a trade (QTY: 1-10, 10-100, 100-1000)
  /del <trade-id>                  delete one of your trades
  /requests                        list pending join requests (admin)
  /approve <request-id>            approve a join request (admin)
  /reject <request-id>             reject a join request (admin)
  /refresh                         reload the group snapshot
  /back                            return to the group list
  anything else                    send as chat`)
	case "trades":
		for _, t := range gs.Trades() {
			lo, hi := t.TotalRange()
			fmt.Printf("  %s  %-5s %-8s x%-8s @%s  total %s..%s  (%s)\n",
				t.ID, t.Side, t.Symbol, t.Quantity, t.Price, lo, hi, t.User)
		}
	case "net":
		fmt.Printf("net position: %s\n", gs.NetPosition())
	case "trade":
		parts := strings.Fields(rest)
		if len(parts) != 4 {
			fmt.Println("usage: /trade <SYMBOL> <QUANTITY> <PRICE> <buy|sell>")
			return
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			fmt.Println("invalid price:", parts[2])
			return
		}
		t, err := gs.SubmitTrade(ctx, parts[0], model.QuantityBucket(parts[1]), price, model.Side(strings.ToLower(parts[3])))
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("recorded trade %s\n", t.ID)
	case "del":
		if err := gs.DeleteTrade(ctx, strings.TrimSpace(rest)); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("trade deleted")
	case "requests":
		if !gs.IsAdmin() {
			fmt.Println("only the group admin can view join requests")
			return
		}
		for _, r := range gs.PendingRequests() {
			fmt.Printf("  %s  %s (requested %s)\n", r.ID, r.User, r.RequestedAt.Format("2006-01-02 15:04"))
		}
	case "approve":
		if err := gs.Approve(ctx, strings.TrimSpace(rest)); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("request approved")
	case "reject":
		if err := gs.Reject(ctx, strings.TrimSpace(rest)); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("request rejected")
	case "refresh":
		if err := gs.Load(ctx); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("snapshot reloaded")
	case "back":
		sess.Close(ctx)
		fmt.Println("back to group list")
	default:
		fmt.Println("unknown command; /help")
	}
}
