// Command subtyl-demo runs a complete handshake and one round-tripped AEAD
// message between an initiator and a responder connected over a local
// websocket, and serves Prometheus metrics alongside it.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subtylsocket/subtylsocket/channel"
	"github.com/subtylsocket/subtylsocket/handshake"
	"github.com/subtylsocket/subtylsocket/transport"
)

var logger = logrus.WithFields(logrus.Fields{"package": "main", "cmd": "subtyl-demo"})

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.WithError(err).Error("subtyl-demo exited with an error")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtyl-demo",
		Short: "Run a complete handshake and message exchange over a local websocket",
		RunE:  run,
	}
	cmd.Flags().String("listen", "127.0.0.1:8421", "address to listen for the demo websocket on")
	cmd.Flags().String("metrics-listen", "127.0.0.1:9421", "address to serve /metrics on")
	cmd.Flags().Duration("handshake-timeout", 5*time.Second, "maximum time the handshake may take")
	viper.BindPFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	viper.SetEnvPrefix("SUBTYL")
	viper.AutomaticEnv()

	listen := viper.GetString("listen")
	metricsListen := viper.GetString("metrics-listen")
	timeout := viper.GetDuration("handshake-timeout")

	go serveMetrics(metricsListen)

	ready := make(chan struct{})
	go serveDemoConnection(listen, timeout, ready)
	<-ready

	dialCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := transport.Dial(dialCtx, "ws://"+listen+"/ws")
	if err != nil {
		return fmt.Errorf("dial demo server: %w", err)
	}
	defer conn.Close()

	in, err := handshake.NewInitiator()
	if err != nil {
		return fmt.Errorf("new initiator: %w", err)
	}
	defer in.Destroy()

	res := in.Start()
	if err := conn.Send(dialCtx, res.Outbound); err != nil {
		return fmt.Errorf("send handshake-init: %w", err)
	}

	deadline := transport.NewHandshakeDeadline(timeout, nil)
	if err := deadline.Guard(context.Background(), func(stepCtx context.Context) (bool, error) {
		if res.Status != handshake.StatusInProgress {
			return true, nil
		}
		inbound, err := conn.Receive(stepCtx)
		if err != nil {
			return false, fmt.Errorf("receive: %w", err)
		}
		res = in.Handle(inbound)
		if res.Outbound != nil {
			if err := conn.Send(stepCtx, res.Outbound); err != nil {
				return false, fmt.Errorf("send: %w", err)
			}
		}
		return res.Status != handshake.StatusInProgress, nil
	}); err != nil {
		return fmt.Errorf("drive handshake: %w", err)
	}
	if res.Status != handshake.StatusConfirmed {
		return fmt.Errorf("handshake failed: %v", res.Err)
	}

	keys, _ := in.DerivedKeys()
	ch := channel.New(keys.Encryption, keys.Authentication)
	defer ch.Close()

	msgCtx, msgCancel := context.WithTimeout(context.Background(), timeout)
	defer msgCancel()

	envelope, err := ch.Seal([]byte("hello from subtyl-demo"))
	if err != nil {
		return fmt.Errorf("seal demo message: %w", err)
	}
	if err := conn.Send(msgCtx, envelope); err != nil {
		return fmt.Errorf("send envelope: %w", err)
	}

	echoed, err := conn.Receive(msgCtx)
	if err != nil {
		return fmt.Errorf("receive echo: %w", err)
	}
	plaintext, err := ch.Open(echoed)
	if err != nil {
		return fmt.Errorf("open echoed envelope: %w", err)
	}

	logger.WithFields(logrus.Fields{"plaintext": string(plaintext)}).Info("round trip complete")
	return nil
}

// serveDemoConnection runs the responder side of the demo: it accepts one
// websocket connection, drives the responder half of the handshake under a
// HandshakeDeadline, then echoes back whatever sealed envelope it receives.
func serveDemoConnection(listen string, timeout time.Duration, ready chan<- struct{}) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logger.WithError(err).Error("listen")
		close(ready)
		return
	}
	close(ready)

	handler := transport.NewServer("/ws", func(conn *transport.WSConn) {
		defer conn.Close()

		resp, err := handshake.NewResponder()
		if err != nil {
			logger.WithError(err).Error("new responder")
			return
		}
		defer resp.Destroy()

		var res *handshake.Result
		deadline := transport.NewHandshakeDeadline(timeout, nil)
		err = deadline.Guard(context.Background(), func(stepCtx context.Context) (bool, error) {
			if resp.Confirmed() {
				return true, nil
			}
			inbound, err := conn.Receive(stepCtx)
			if err != nil {
				return false, err
			}
			res = resp.Handle(inbound)
			if res.Outbound != nil {
				if err := conn.Send(stepCtx, res.Outbound); err != nil {
					return false, err
				}
			}
			if res.Status == handshake.StatusFailed {
				return false, fmt.Errorf("handshake failed: %w", res.Err)
			}
			return resp.Confirmed(), nil
		})
		if err != nil {
			logger.WithError(err).Warn("responder handshake did not complete")
			return
		}

		keys, _ := resp.DerivedKeys()
		ch := channel.New(keys.Encryption, keys.Authentication)
		defer ch.Close()

		msgCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		envelope, err := conn.Receive(msgCtx)
		if err != nil {
			logger.WithError(err).Warn("receive envelope")
			return
		}
		plaintext, err := ch.Open(envelope)
		if err != nil {
			logger.WithError(err).Warn("open envelope")
			return
		}
		echo, err := ch.Seal(plaintext)
		if err != nil {
			logger.WithError(err).Warn("seal echo")
			return
		}
		if err := conn.Send(msgCtx, echo); err != nil {
			logger.WithError(err).Warn("send echo")
		}
	})

	server := &http.Server{Handler: handler}
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("demo server stopped")
	}
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.WithFields(logrus.Fields{"addr": listen}).Info("serving /metrics")
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.WithError(err).Error("metrics server stopped")
	}
}
