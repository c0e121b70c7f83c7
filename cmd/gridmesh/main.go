// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/gridmesh/gridmesh/api"
	"github.com/gridmesh/gridmesh/chain"
	"github.com/gridmesh/gridmesh/co"
	"github.com/gridmesh/gridmesh/genesis"
	"github.com/gridmesh/gridmesh/log"
	"github.com/gridmesh/gridmesh/logdb"
	"github.com/gridmesh/gridmesh/lvldb"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/metrics"
	"github.com/gridmesh/gridmesh/packer"
	"github.com/gridmesh/gridmesh/state"
)

var (
	version   = "1.0.0"
	gitCommit string

	logger = log.New("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.NewApp()
	app.Name = "gridmesh"
	app.Version = fullVersion()
	app.Usage = "the GridMesh DePIN accounting node"
	app.Copyright = "(c) 2025 The GridMesh developers"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "data-dir",
			Value: defaultDataDir(),
			Usage: "directory for block-chain databases",
		},
		cli.StringFlag{
			Name:  "api-addr",
			Value: "localhost:8669",
			Usage: "API service listening address",
		},
		cli.StringFlag{
			Name:  "api-cors",
			Value: "",
			Usage: "comma separated list of domains from which to accept cross origin requests to API",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Value: "",
			Usage: "metrics service listening address, disabled when empty",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "path to custom genesis file, defaults to the dev network",
		},
		cli.Uint64Flag{
			Name:  "block-interval",
			Value: mesh.BlockInterval,
			Usage: "interval between packed blocks, in seconds",
		},
		cli.BoolFlag{
			Name:  "on-demand",
			Usage: "pack a block as soon as an operation arrives",
		},
		cli.BoolFlag{
			Name:  "persist",
			Usage: "persist state and blocks on disk instead of memory",
		},
		cli.IntFlag{
			Name:  "verbosity",
			Value: 3,
			Usage: "log verbosity (0-5)",
		},
	}
	app.Action = action

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gridmesh")
}

func action(ctx *cli.Context) error {
	log.Setup(ctx.Int("verbosity"))

	var goes co.Goes
	done := make(chan struct{})

	if addr := ctx.String("metrics-addr"); addr != "" {
		metrics.InitializePrometheusMetrics()
		closeFn, err := startMetricsServer(addr)
		if err != nil {
			return err
		}
		defer closeFn()
	}

	store, logDB, closeDBs, err := openDatabases(ctx)
	if err != nil {
		return err
	}
	defer closeDBs()

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}

	stater := state.NewStater(store)
	genesisBlock, err := gene.Build(stater)
	if err != nil {
		return errors.WithMessage(err, "build genesis")
	}
	repo, err := chain.NewRepository(store, genesisBlock)
	if err != nil {
		return errors.WithMessage(err, "open chain repository")
	}
	logger.Info("chain opened",
		"network", gene.Name(),
		"best", repo.BestBlock().Header().Number(),
	)
	if gene.Name() == "devnet" {
		printDevAccounts()
	}

	pkr := packer.New(stater, repo, logDB)

	apiHandler, apiCloser := api.New(repo, stater, pkr, logDB, api.Options{
		AllowedOrigins: ctx.String("api-cors"),
		LogsLimit:      1000,
		EnableMetrics:  ctx.String("metrics-addr") != "",
	})
	defer apiCloser()

	srvCloser, err := startAPIServer(ctx.String("api-addr"), apiHandler, &goes)
	if err != nil {
		return err
	}
	defer srvCloser()

	goes.Go(func() {
		packLoop(done, pkr,
			time.Duration(ctx.Uint64("block-interval"))*time.Second,
			ctx.Bool("on-demand"))
	})

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)
	<-exitSignal
	logger.Info("exit signal received, shutting down")

	close(done)
	goes.Wait()
	return nil
}

func openDatabases(ctx *cli.Context) (*lvldb.LevelDB, *logdb.LogDB, func(), error) {
	if !ctx.Bool("persist") {
		store, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, nil, err
		}
		logDB, err := logdb.NewMem()
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		return store, logDB, func() {
			logDB.Close()
			store.Close()
		}, nil
	}

	dataDir := ctx.String("data-dir")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, nil, errors.WithMessage(err, "create data directory")
	}
	store, err := lvldb.New(filepath.Join(dataDir, "main.db"), lvldb.Options{})
	if err != nil {
		return nil, nil, nil, errors.WithMessage(err, "open main database")
	}
	logDB, err := logdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		store.Close()
		return nil, nil, nil, errors.WithMessage(err, "open event database")
	}
	return store, logDB, func() {
		logDB.Close()
		store.Close()
	}, nil
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String("genesis")
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	custom, err := genesis.LoadCustomGenesis(path)
	if err != nil {
		return nil, errors.WithMessage(err, "load genesis file")
	}
	return genesis.NewCustomNet(custom)
}

func startMetricsServer(addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithMessagef(err, "listen metrics API addr [%s]", addr)
	}
	router := http.NewServeMux()
	router.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: router, ReadHeaderTimeout: time.Second * 2}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	logger.Info("metrics service started", "addr", "http://"+listener.Addr().String()+"/metrics")
	return func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func startAPIServer(addr string, handler http.HandlerFunc, goes *co.Goes) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithMessagef(err, "listen API addr [%s]", addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second * 2}
	goes.Go(func() {
		srv.Serve(listener)
	})
	logger.Info("API service started", "addr", "http://"+listener.Addr().String())
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, nil
}

// packLoop seals pending operations either on a fixed interval or as
// soon as they arrive.
func packLoop(done <-chan struct{}, pkr *packer.Packer, interval time.Duration, onDemand bool) {
	if onDemand {
		waiter := pkr.PendingWaiter()
		for {
			select {
			case <-done:
				return
			case <-waiter.C():
				if _, _, err := pkr.Pack(uint64(time.Now().Unix())); err != nil {
					logger.Error("pack failed", "err", err)
				}
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := pkr.Pack(uint64(time.Now().Unix())); err != nil {
				logger.Error("pack failed", "err", err)
			}
		}
	}
}

func printDevAccounts() {
	fmt.Println("dev network accounts, never use these keys in production:")
	for i, acc := range genesis.DevAccounts() {
		fmt.Printf("  [%d] %s\n", i, acc.Address)
	}
}
