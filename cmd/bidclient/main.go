package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"bidding-engine/internal/client"
	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/shopspring/decimal"
)

const usage = `usage: bidclient [flags] <command> [args]

commands:
  bid <auctionId> <amount>        place a manual bid
  proxy <auctionId> <maxAmount>   register or raise a proxy ceiling
  bids <auctionId>                list an auction's bids
  user <userId>                   list a user's bids
  auction <auctionId>             show an auction
  live                            list live auctions
  create <productId> <startPrice> <minIncrement> <duration>
  start <auctionId>
  end <auctionId>
  export <auctionId> <file.xlsx>  download the bid ledger
`

func main() {
	server := flag.String("server", envOr("BIDDING_SERVER", "http://localhost:8080"), "bidding API base URL")
	user := flag.String("user", os.Getenv("BIDDING_USER"), "caller id sent as "+helpers.UserIDHeader)
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server, *user, *timeout)
	out, err := run(ctx, c, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		utils.Error("bidclient: command failed", map[string]any{"command": flag.Arg(0), "error": err.Error()})
		os.Exit(1)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) (any, error) {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "bid", "proxy":
		if err := need(2); err != nil {
			return nil, err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return nil, err
		}
		if cmd == "bid" {
			return c.PlaceBid(ctx, args[0], amount)
		}
		return c.PlaceProxyBid(ctx, args[0], amount)
	case "bids":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.BidsForAuction(ctx, args[0])
	case "user":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.BidsByUser(ctx, args[0])
	case "auction":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.Auction(ctx, args[0])
	case "live":
		return c.LiveAuctions(ctx)
	case "create":
		if err := need(4); err != nil {
			return nil, err
		}
		start, err := parseAmount(args[1])
		if err != nil {
			return nil, err
		}
		inc, err := parseAmount(args[2])
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(args[3])
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", args[3], err)
		}
		now := time.Now().UTC()
		return c.CreateAuction(ctx, helpers.CreateAuctionRequest{
			ProductID:    args[0],
			StartPrice:   start,
			MinIncrement: inc,
			StartTime:    now,
			EndTime:      now.Add(d),
		})
	case "start":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.StartAuction(ctx, args[0])
	case "end":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.EndAuction(ctx, args[0])
	case "export":
		if err := need(2); err != nil {
			return nil, err
		}
		data, err := c.ExportBids(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", args[1], err)
		}
		return map[string]any{"file": args[1], "bytes": len(data)}, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
