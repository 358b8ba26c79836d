package netdiag

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// HTTP probe limits.
const (
	CurlTimeout      = 35 * time.Second
	HTTPTimeout      = 30 * time.Second
	MaxResponseBytes = 10 << 20
)

// Curl probes an HTTP(S) URL with curl, falling back to a native client.
type Curl struct {
	deps Deps
}

// NewCurl returns the HTTP probe tool.
func NewCurl(deps Deps) *Curl {
	return &Curl{deps: deps.withDefaults()}
}

func (c *Curl) Spec() tool.Spec {
	return tool.Spec{
		Name:        "curl",
		Description: "Send an HTTP request to a public URL and report the response",
		Params: []tool.Param{
			{Name: "url", Type: tool.TypeString, Description: "http or https URL", Required: true},
			{Name: "method", Type: tool.TypeString, Description: "HTTP method", Enum: []string{"GET", "POST", "HEAD", "OPTIONS"}, Default: "GET"},
			{Name: "headers", Type: tool.TypeBoolean, Description: "Include response headers", Default: true},
			{Name: "follow_redirects", Type: tool.TypeBoolean, Description: "Follow redirects", Default: true},
		},
	}
}

type httpProbe struct {
	url             string
	method          string
	includeHeaders  bool
	followRedirects bool
}

func (c *Curl) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("curl", args); err != nil {
		return "", err
	}
	probe := httpProbe{}
	probe.url, _ = args.String("url", "")
	probe.method, _ = args.String("method", http.MethodGet)
	probe.method = strings.ToUpper(probe.method)
	probe.includeHeaders, _ = args.Bool("headers", true)
	probe.followRedirects, _ = args.Bool("follow_redirects", true)

	text, err := c.deps.chain("curl").Run(ctx,
		tool.Strategy{Name: "curl-binary", Kind: tool.StrategyExternal, Run: func(ctx context.Context) (string, error) {
			return c.curl(ctx, probe)
		}},
		tool.Strategy{Name: "http-client", Kind: tool.StrategyNative, Run: func(ctx context.Context) (string, error) {
			return c.native(ctx, probe)
		}},
	)
	return c.deps.finish("curl", text, err)
}

// CurlCommand builds the curl invocation.
func CurlCommand(url, method string, includeHeaders, followRedirects bool) tool.Command {
	args := []string{"-s"}
	switch {
	case method == http.MethodHead:
		// -X HEAD would leave curl waiting for the body Content-Length announces.
		args = append(args, "-I")
	case includeHeaders:
		args = append(args, "-i")
	}
	if followRedirects {
		args = append(args, "-L", "--max-redirs", "5")
	}
	if method != http.MethodHead {
		args = append(args, "-X", method)
	}
	args = append(args,
		"--max-time", "30",
		"--connect-timeout", "10",
		"-w", report.CurlWriteOut,
		"--", url,
	)
	return tool.Command{Name: "curl", Args: args, Timeout: CurlTimeout}
}

func (c *Curl) curl(ctx context.Context, p httpProbe) (string, error) {
	res, err := c.deps.runBinary(ctx, CurlCommand(p.url, p.method, p.includeHeaders, p.followRedirects))
	if err != nil {
		return "", err
	}
	return report.FormatCurl(p.method, p.url, report.ParseCurl(string(res.Stdout))), nil
}

func (c *Curl) native(ctx context.Context, p httpProbe) (string, error) {
	result, err := tool.Offload(ctx, c.deps.Pool, HTTPTimeout+10*time.Second, func() (report.HTTPResult, error) {
		return c.do(ctx, p)
	})
	if err != nil {
		if _, ok := tool.AsToolError(err); ok {
			return "", err
		}
		return "", tool.NewError(tool.CodeUpstreamFailure, "HTTP request failed: "+err.Error(), err)
	}
	return report.FormatHTTP(result, p.includeHeaders), nil
}

func (c *Curl) do(ctx context.Context, p httpProbe) (report.HTTPResult, error) {
	ctx, cancel := context.WithTimeout(ctx, HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		return report.HTTPResult{}, err
	}
	req.Header.Set("User-Agent", c.deps.UserAgent)

	start := time.Now()
	resp, err := c.deps.HTTPClient(p.followRedirects).Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return report.HTTPResult{}, tool.Timeout("HTTP request to " + p.url + " timed out")
		}
		return report.HTTPResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return report.HTTPResult{}, err
	}

	finalURL := p.url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return report.HTTPResult{
		Method:     p.method,
		URL:        p.url,
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		Headers:    headerLines(resp.Header),
		Body:       body,
		FinalURL:   finalURL,
		Elapsed:    time.Since(start),
	}, nil
}

func headerLines(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+strings.Join(h.Values(k), ", "))
	}
	return out
}
