// Command subtyl-bench measures handshake and AEAD channel throughput over
// an in-memory duplex pipe, paced by a token bucket so the benchmark can be
// run at a bounded rate instead of flat out.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/subtylsocket/subtylsocket/channel"
	"github.com/subtylsocket/subtylsocket/handshake"
	"github.com/subtylsocket/subtylsocket/transport"
)

var logger = logrus.WithFields(logrus.Fields{"package": "main", "cmd": "subtyl-bench"})

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.WithError(err).Error("subtyl-bench exited with an error")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var duration time.Duration
	var handshakesPerSec float64
	var messageCount int
	var handshakeTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "subtyl-bench",
		Short: "Measure handshake and AEAD channel throughput over an in-memory pipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(duration, handshakesPerSec, messageCount, handshakeTimeout)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the benchmark")
	cmd.Flags().Float64Var(&handshakesPerSec, "rate", 50, "maximum handshakes started per second")
	cmd.Flags().IntVar(&messageCount, "messages", 10, "AEAD messages exchanged per confirmed handshake")
	cmd.Flags().DurationVar(&handshakeTimeout, "handshake-timeout", 2*time.Second, "maximum time a single handshake may take")
	return cmd
}

// pipeDuplex is an in-memory, unbuffered transport.Duplex used to drive two
// peers against each other without a network round trip.
type pipeDuplex struct {
	out chan []byte
	in  chan []byte
}

func newPipePair() (*pipeDuplex, *pipeDuplex) {
	a := make(chan []byte)
	b := make(chan []byte)
	return &pipeDuplex{out: a, in: b}, &pipeDuplex{out: b, in: a}
}

func (p *pipeDuplex) Send(ctx context.Context, msg []byte) error {
	select {
	case p.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeDuplex) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeDuplex) Close() error { return nil }

func runBench(duration time.Duration, handshakesPerSec float64, messageCount int, handshakeTimeout time.Duration) error {
	limiter := rate.NewLimiter(rate.Limit(handshakesPerSec), 1)

	var handshakeCount, messageTotal int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	start := time.Now()
	for {
		if ctx.Err() != nil {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs, err := runOneHandshake(ctx, messageCount, handshakeTimeout)
			if err != nil {
				logger.WithError(err).Debug("handshake run failed")
				return
			}
			mu.Lock()
			handshakeCount++
			messageTotal += int64(msgs)
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("handshakes: %d (%.1f/sec)\n", handshakeCount, float64(handshakeCount)/elapsed.Seconds())
	fmt.Printf("aead messages: %d (%.1f/sec)\n", messageTotal, float64(messageTotal)/elapsed.Seconds())
	return nil
}

func runOneHandshake(ctx context.Context, messageCount int, handshakeTimeout time.Duration) (int, error) {
	initSide, respSide := newPipePair()

	in, err := handshake.NewInitiator()
	if err != nil {
		return 0, err
	}
	defer in.Destroy()
	resp, err := handshake.NewResponder()
	if err != nil {
		return 0, err
	}
	defer resp.Destroy()

	errCh := make(chan error, 2)
	go func() { errCh <- driveResponder(ctx, resp, respSide, handshakeTimeout) }()
	go func() { errCh <- driveInitiator(ctx, in, initSide, handshakeTimeout) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			return 0, err
		}
	}

	inKeys, ok := in.DerivedKeys()
	if !ok {
		return 0, fmt.Errorf("initiator missing derived keys after confirmation")
	}
	ch := channel.New(inKeys.Encryption, inKeys.Authentication)
	defer ch.Close()

	sent := 0
	for i := 0; i < messageCount; i++ {
		env, err := ch.Seal([]byte("bench payload"))
		if err != nil {
			return sent, err
		}
		if _, err := ch.Open(env); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func driveInitiator(ctx context.Context, in *handshake.Initiator, conn *pipeDuplex, timeout time.Duration) error {
	res := in.Start()
	if err := conn.Send(ctx, res.Outbound); err != nil {
		return err
	}

	deadline := transport.NewHandshakeDeadline(timeout, nil)
	if err := deadline.Guard(ctx, func(stepCtx context.Context) (bool, error) {
		if res.Status != handshake.StatusInProgress {
			return true, nil
		}
		msg, err := conn.Receive(stepCtx)
		if err != nil {
			return false, err
		}
		res = in.Handle(msg)
		if res.Outbound != nil {
			if err := conn.Send(stepCtx, res.Outbound); err != nil {
				return false, err
			}
		}
		return res.Status != handshake.StatusInProgress, nil
	}); err != nil {
		return err
	}
	if res.Status != handshake.StatusConfirmed {
		return fmt.Errorf("initiator failed: %v", res.Err)
	}
	return nil
}

func driveResponder(ctx context.Context, resp *handshake.Responder, conn *pipeDuplex, timeout time.Duration) error {
	deadline := transport.NewHandshakeDeadline(timeout, nil)
	return deadline.Guard(ctx, func(stepCtx context.Context) (bool, error) {
		if resp.Confirmed() {
			return true, nil
		}
		msg, err := conn.Receive(stepCtx)
		if err != nil {
			return false, err
		}
		res := resp.Handle(msg)
		if res.Outbound != nil {
			if err := conn.Send(stepCtx, res.Outbound); err != nil {
				return false, err
			}
		}
		if res.Status == handshake.StatusFailed {
			return false, fmt.Errorf("responder failed: %v", res.Err)
		}
		return resp.Confirmed(), nil
	})
}
