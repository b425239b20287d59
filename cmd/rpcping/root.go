package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"async-rpc/client"
	"async-rpc/codec"
	"async-rpc/config"
	"async-rpc/loadbalance"
	"async-rpc/middleware"
	"async-rpc/registry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type callOptions struct {
	cfgFile  string
	addr     string
	service  string
	method   string
	args     []string
	oneway   bool
	timeout  time.Duration
	parallel int
}

func newRootCmd() *cobra.Command {
	opts := &callOptions{}
	root := &cobra.Command{
		Use:           "rpcping",
		Short:         "Issue calls over the binary RPC protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "path to YAML config file")

	call := &cobra.Command{
		Use:   "call",
		Short: "Call a method with typed arguments and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	call.Flags().StringVar(&opts.addr, "addr", "", "endpoint address host:port")
	call.Flags().StringVar(&opts.service, "service", "", "service name resolved through the etcd registry")
	call.Flags().StringVar(&opts.method, "method", "", "method name")
	call.Flags().StringArrayVar(&opts.args, "arg", nil, "argument as id:type=value (bool, byte, i16, i32, i64, double, string, binary)")
	call.Flags().BoolVar(&opts.oneway, "oneway", false, "send without waiting for a reply")
	call.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-call timeout (overrides client.default_timeout)")
	call.Flags().IntVar(&opts.parallel, "parallel", 1, "number of handles calling concurrently")
	call.MarkFlagRequired("method")

	root.AddCommand(call)
	return root
}

func runCall(ctx context.Context, out io.Writer, opts *callOptions) error {
	if opts.addr == "" && opts.service == "" {
		return fmt.Errorf("one of --addr or --service is required")
	}
	if opts.parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	args, err := parseArgs(opts.args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	engine, err := client.NewEngine(cfg.EngineSettings(), logger)
	if err != nil {
		return err
	}
	defer func() {
		engine.Stop()
		<-engine.Done()
	}()

	mws := []middleware.Middleware{middleware.Logging(logger)}
	if cfg.Client.DefaultTimeout > 0 {
		mws = append(mws, middleware.DefaultTimeout(cfg.Client.DefaultTimeout))
	}
	if cfg.Client.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst))
	}
	submitter := middleware.Wrap(engine, mws...)

	handleOpts := cfg.HandleOptions()
	if opts.timeout > 0 {
		handleOpts.Timeout = opts.timeout
	}

	newHandle, closeRegistry, err := handleFactory(cfg, logger, submitter, opts, handleOpts)
	if err != nil {
		return err
	}
	defer closeRegistry()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.parallel; i++ {
		g.Go(func() error {
			h, err := newHandle()
			if err != nil {
				return err
			}
			defer h.Close()

			res, err := issue(ctx, h, opts, args)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return printResult(out, h.Addr(), res)
		})
	}
	return g.Wait()
}

func handleFactory(cfg *config.Config, logger *zap.Logger, s client.Submitter, opts *callOptions, ho *client.HandleOptions) (func() (*client.Handle, error), func(), error) {
	if opts.service == "" {
		return func() (*client.Handle, error) { return client.NewHandle(s, opts.addr, ho) }, func() {}, nil
	}
	if len(cfg.Registry.Endpoints) == 0 {
		return nil, nil, fmt.Errorf("--service needs registry.endpoints in the config file")
	}
	reg, err := registry.NewEtcdRegistry(cfg.EtcdSettings(logger))
	if err != nil {
		return nil, nil, err
	}
	bal := loadbalance.New(cfg.Client.Balancer, cfg.Client.BalanceKey)
	return func() (*client.Handle, error) {
		return client.NewServiceHandle(s, reg, bal, opts.service, ho)
	}, func() { reg.Close() }, nil
}

func issue(ctx context.Context, h *client.Handle, opts *callOptions, args *codec.Struct) (client.Result, error) {
	done := make(chan client.Result, 1)
	cb := func(r client.Result) { done <- r }
	var err error
	if opts.oneway {
		err = h.Oneway(opts.method, args, cb)
	} else {
		err = h.Call(opts.method, args, nil, cb)
	}
	if err != nil {
		return client.Result{}, err
	}
	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return client.Result{}, ctx.Err()
	}
}

func printResult(out io.Writer, addr string, r client.Result) error {
	if r.Err != nil {
		fmt.Fprintf(out, "%s %s seq=%d %s error (%s): %v\n", addr, r.Method, r.SeqID, r.Elapsed, client.Classify(r.Err), r.Err)
		return nil
	}
	v, _ := r.Value.(codec.Value)
	text, err := codec.ToJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s seq=%d %s %s\n", addr, r.Method, r.SeqID, r.Elapsed, text)
	return nil
}
