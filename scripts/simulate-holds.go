package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-reservation/pkg/grpc"
)

var (
	addr         = flag.String("addr", "localhost:50057", "Reservation gRPC address")
	jwtSecret    = flag.String("jwt-secret", "jwt-secret", "JWT secret shared with the server")
	eventID      = flag.String("event", "", "Event ID (generated when empty)")
	capacity     = flag.Int("capacity", 100, "Tier capacity")
	numUsers     = flag.Int("users", 300, "Number of concurrent holders")
	maxQty       = flag.Int("max-qty", 4, "Maximum tickets per hold")
	finalizeRate = flag.Float64("finalize-rate", 0.6, "Probability a successful hold is finalized (0.0-1.0)")
	cancelRate   = flag.Float64("cancel-rate", 0.2, "Probability a successful hold is cancelled (0.0-1.0)")
	joinRate     = flag.Duration("join-rate", 5*time.Millisecond, "Time between holder starts (0 for maximum speed)")
)

type stats struct {
	held, rejected, finalized, cancelled, waitlisted, failed atomic.Int64
	unitsSold                                                atomic.Int64
}

func main() {
	flag.Parse()

	if *eventID == "" {
		*eventID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli, closeCli, err := pkgGrpc.NewReservationClient(*addr)
	if err != nil {
		fmt.Println("Error: failed to connect:", err)
		os.Exit(1)
	}
	defer closeCli()

	tokens := auth.NewJWTVerifier(config.JWTConfig{Secret: *jwtSecret, Expiry: time.Hour}, clock.NewSystem())
	adminToken, err := tokens.Issue("simulator-admin")
	if err != nil {
		fmt.Println("Error: failed to issue token:", err)
		os.Exit(1)
	}

	tier, err := cli.Call(ctx, "CreateTier", adminToken, map[string]any{
		"event_id": *eventID,
		"name":     "GA",
		"capacity": *capacity,
		"price":    5000,
	})
	if err != nil {
		fmt.Println("Error: failed to create tier:", err)
		os.Exit(1)
	}
	tierID := tier["id"].(string)

	fmt.Printf("Simulating %d holders against tier %s (capacity %d)\n", *numUsers, tierID, *capacity)

	var (
		st stats
		wg sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < *numUsers; i++ {
		if ctx.Err() != nil {
			break
		}

		holder := fmt.Sprintf("sim-holder-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runHolder(ctx, cli, tokens, tierID, holder, &st)
		}()

		if *joinRate > 0 {
			time.Sleep(*joinRate)
		}
	}
	wg.Wait()

	avail, err := cli.Call(context.Background(), "GetAvailability", adminToken, map[string]any{"tier_id": tierID})
	if err != nil {
		fmt.Println("Error: failed to read availability:", err)
		os.Exit(1)
	}

	fmt.Printf("\nFinished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  held:       %d\n", st.held.Load())
	fmt.Printf("  rejected:   %d\n", st.rejected.Load())
	fmt.Printf("  finalized:  %d (%d units)\n", st.finalized.Load(), st.unitsSold.Load())
	fmt.Printf("  cancelled:  %d\n", st.cancelled.Load())
	fmt.Printf("  waitlisted: %d\n", st.waitlisted.Load())
	fmt.Printf("  errors:     %d\n", st.failed.Load())
	fmt.Printf("  ledger:     confirmed_sold=%v reserved=%v available=%v\n",
		avail["confirmed_sold"], avail["reserved"], avail["available"])

	if sold, ok := avail["confirmed_sold"].(float64); ok && int(sold) > *capacity {
		fmt.Println("OVERSOLD: confirmed_sold exceeds capacity")
		os.Exit(2)
	}
}

func runHolder(ctx context.Context, cli pkgGrpc.ReservationClient, tokens auth.Verifier, tierID, holder string, st *stats) {
	token, err := tokens.Issue(holder)
	if err != nil {
		st.failed.Add(1)
		return
	}

	qty := 1 + rand.Intn(*maxQty)
	hold, err := cli.Call(ctx, "CreateTicketHold", token, map[string]any{"tier_id": tierID, "quantity": qty})
	if err != nil {
		st.rejected.Add(1)
		if _, err := cli.Call(ctx, "JoinWaitlist", token, map[string]any{"tier_id": tierID, "quantity": qty}); err == nil {
			st.waitlisted.Add(1)
		}
		return
	}
	st.held.Add(1)

	// Simulate time spent at checkout.
	time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)

	switch r := rand.Float64(); {
	case r < *finalizeRate:
		if _, err := cli.Call(ctx, "FinalizeTicketHold", token, map[string]any{"hold_id": hold["id"]}); err != nil {
			st.failed.Add(1)
			return
		}
		st.finalized.Add(1)
		st.unitsSold.Add(int64(qty))
	case r < *finalizeRate+*cancelRate:
		if _, err := cli.Call(ctx, "CancelTicketHold", token, map[string]any{"hold_id": hold["id"]}); err != nil {
			st.failed.Add(1)
			return
		}
		st.cancelled.Add(1)
	default:
		// Abandoned; the sweeper reclaims it on expiry.
	}
}
