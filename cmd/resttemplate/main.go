package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/samvad-hq/samvad-resttemplate/internal/app"
	"github.com/samvad-hq/samvad-resttemplate/internal/config"
	"github.com/samvad-hq/samvad-resttemplate/internal/domain"
	"github.com/samvad-hq/samvad-resttemplate/internal/logger"
	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
	flag "github.com/spf13/pflag"
)

type options struct {
	method      string
	url         string
	data        string
	headers     []string
	repeat      int
	concurrency int
	demo        bool
	register    string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "resttemplate failed: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("resttemplate", flag.ContinueOnError)
	fs.StringVarP(&opts.method, "method", "X", "GET", "HTTP verb (GET, POST, PUT, DELETE)")
	fs.StringVarP(&opts.url, "url", "u", "", "virtual URL, e.g. http://ProductService/api/Product/")
	fs.StringVarP(&opts.data, "data", "d", "", "JSON request body")
	fs.StringArrayVarP(&opts.headers, "header", "H", nil, "request header \"Name: value\" (repeatable)")
	fs.IntVarP(&opts.repeat, "repeat", "n", 1, "number of times to issue the call")
	fs.IntVarP(&opts.concurrency, "concurrency", "c", 1, "maximum calls in flight")
	fs.BoolVar(&opts.demo, "demo", false, "run the product list/create walkthrough against --url")
	fs.StringVar(&opts.register, "register", "", "register \"service=host:port\" in the bbolt or redis registry and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.url == "" && fs.NArg() > 0 {
		opts.url = fs.Arg(0)
	}
	if opts.url == "" && opts.register == "" {
		return opts, errors.New("a virtual --url is required")
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.register != "" {
		inst, err := parseRegistration(opts.register)
		if err != nil {
			return err
		}
		if err := app.RegisterInstance(ctx, cfg, inst); err != nil {
			return fmt.Errorf("register instance: %w", err)
		}
		logger.InfoObj("instance registered", "instance", inst)
		return nil
	}

	client, err := app.NewClient(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize client", "error", err)
		return err
	}
	defer client.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.demo {
		report, err := app.RunDemo(ctx, client.RT, opts.url, domain.Product{Name: "widget", Price: 9.99}, log)
		if err != nil {
			return err
		}
		return enc.Encode(report)
	}

	header, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}
	call := app.Call{Method: opts.method, URL: opts.url, Header: header}
	if opts.data != "" {
		if !json.Valid([]byte(opts.data)) {
			return errors.New("--data must be valid JSON")
		}
		call.Body = json.RawMessage(opts.data)
	}

	results, err := app.NewRunner(client.RT, opts.concurrency, log).Run(ctx, app.Repeat(call, opts.repeat))
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if err := enc.Encode(render(res)); err != nil {
			return err
		}
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, len(results))
	}
	return nil
}

type renderedResult struct {
	Index      int                 `json:"index"`
	StatusCode int                 `json:"status_code,omitempty"`
	Header     map[string][]string `json:"header,omitempty"`
	Body       json.RawMessage     `json:"body,omitempty"`
	ElapsedMs  int64               `json:"elapsed_ms"`
	Error      string              `json:"error,omitempty"`
}

func render(res app.Result) renderedResult {
	out := renderedResult{Index: res.Index, ElapsedMs: res.Elapsed.Milliseconds()}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	out.StatusCode = res.Response.StatusCode
	if res.Response.Header.Len() > 0 {
		out.Header = make(map[string][]string, res.Response.Header.Len())
		res.Response.Header.Each(func(name string, values []string) {
			out.Header[name] = values
		})
	}
	if res.Response.HasBody {
		out.Body = res.Response.Body
	}
	return out
}

func parseHeaders(raw []string) (*resttemplate.Header, error) {
	h := resttemplate.NewHeader()
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

func parseRegistration(raw string) (registry.Instance, error) {
	service, addr, ok := strings.Cut(raw, "=")
	if !ok {
		return registry.Instance{}, fmt.Errorf("invalid registration %q (expected service=host:port)", raw)
	}
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return registry.Instance{}, fmt.Errorf("invalid registration address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return registry.Instance{}, fmt.Errorf("invalid registration port %q", portStr)
	}
	return registry.Instance{
		Service: strings.TrimSpace(service),
		Address: host,
		Port:    port,
	}, nil
}
