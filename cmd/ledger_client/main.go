package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/in/grpc"
	ledgergrpc "github.com/JoeShih716/go-statement-ledger/pkg/grpc"
)

// 壓測用客戶端：對同一帳戶併發送出存款或提款，統計成功與被拒絕的數量
// 提款總額超過餘額時，成功筆數應剛好等於餘額可負擔的筆數
func main() {
	target := flag.String("target", "localhost:50051", "grpc server address")
	tok := flag.String("token", "", "bearer token of the acting account (POST /api/v1/sessions)")
	op := flag.String("op", "withdraw", "deposit | withdraw")
	amount := flag.String("amount", "10", "amount of each statement")
	total := flag.Int("n", 1000, "total requests")
	concurrency := flag.Int("c", 100, "concurrent requests")
	flag.Parse()

	if *tok == "" {
		log.Fatal("-token is required")
	}

	pool := ledgergrpc.NewPool(ledgergrpc.WithInterceptor(ledgergrpc.BearerToken(*tok)))
	defer pool.Close()

	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	c := grpc_adapter.NewStatementServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	before, err := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{})
	if err != nil {
		log.Fatalf("get balance: %v", err)
	}

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		rejected atomic.Int64
		failed   atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *total; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.CreateStatement(ctx, &grpc_adapter.CreateStatementRequest{
				Type:        *op,
				Amount:      *amount,
				Description: fmt.Sprintf("load-%d", idx),
			})
			switch status.Code(err) {
			case codes.OK:
				accepted.Add(1)
			case codes.InvalidArgument:
				rejected.Add(1)
			default:
				if failed.Add(1) == 1 {
					log.Printf("request %d failed: %v", idx, err)
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	after, err := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{})
	if err != nil {
		log.Fatalf("get balance: %v", err)
	}

	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("accepted=%d rejected=%d failed=%d\n", accepted.Load(), rejected.Load(), failed.Load())
	fmt.Printf("balance: %s -> %s\n", before.Balance, after.Balance)
}
