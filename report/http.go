package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// CurlStatsMarker separates the response from the write-out statistics block.
const CurlStatsMarker = "\n\nHTTP Stats:\n"

// CurlWriteOut is the -w format passed to curl.
const CurlWriteOut = CurlStatsMarker +
	"Time Total: %{time_total}s\n" +
	"Time Connect: %{time_connect}s\n" +
	"Time TLS: %{time_appconnect}s\n" +
	"Size Downloaded: %{size_download} bytes\n" +
	"Speed: %{speed_download} bytes/s\n" +
	"HTTP Code: %{http_code}"

// CurlResponse is the parsed output of a curl invocation.
type CurlResponse struct {
	// Headers holds the final response's header block, status line first.
	Headers []string
	Body    string
	Stats   []string
}

// ParseCurl splits curl output produced with CurlWriteOut. When headers were
// requested with redirects followed, only the last header block is kept.
func ParseCurl(raw string) CurlResponse {
	var resp CurlResponse
	response := raw
	if i := strings.LastIndex(raw, CurlStatsMarker); i >= 0 {
		response = raw[:i]
		for _, stat := range strings.Split(raw[i+len(CurlStatsMarker):], "\n") {
			if stat = strings.TrimSpace(stat); stat != "" {
				resp.Stats = append(resp.Stats, stat)
			}
		}
	}

	for strings.HasPrefix(response, "HTTP/") {
		block, rest, found := cutHeaderBlock(response)
		resp.Headers = nil
		for _, h := range strings.Split(block, "\n") {
			if h = strings.TrimRight(h, "\r"); strings.TrimSpace(h) != "" {
				resp.Headers = append(resp.Headers, h)
			}
		}
		response = rest
		if !found {
			break
		}
	}
	resp.Body = response
	return resp
}

func cutHeaderBlock(s string) (block, rest string, found bool) {
	crlf := strings.Index(s, "\r\n\r\n")
	lf := strings.Index(s, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return s[:crlf], s[crlf+4:], true
	case lf >= 0:
		return s[:lf], s[lf+2:], true
	default:
		return s, "", false
	}
}

// FormatCurl renders a parsed curl response.
func FormatCurl(method, url string, resp CurlResponse) string {
	out := []string{httpHeader(method, url)}
	if len(resp.Headers) > 0 {
		out = append(out, "📋 Response headers:")
		for i, h := range resp.Headers {
			if i == MaxHeaderLines {
				break
			}
			out = append(out, "   "+h)
		}
	}
	if body := strings.TrimSpace(resp.Body); body != "" {
		out = append(out, "📄 Response body:", Truncate(body, MaxBodyChars))
	}
	if len(resp.Stats) > 0 {
		out = append(out, "📊 Statistics:")
		for _, stat := range resp.Stats {
			out = append(out, "   "+stat)
		}
	}
	return strings.Join(out, "\n")
}

// HTTPResult is the outcome of a native HTTP probe.
type HTTPResult struct {
	Method     string
	URL        string
	StatusCode int
	Reason     string
	// Headers are "Key: value" lines sorted by key.
	Headers  []string
	Body     []byte
	FinalURL string
	Elapsed  time.Duration
}

// FormatHTTP renders a native HTTP probe. Headers are shown only when
// includeHeaders is set.
func FormatHTTP(r HTTPResult, includeHeaders bool) string {
	out := []string{
		httpHeader(r.Method, r.URL),
		fmt.Sprintf("📊 Status: %d %s", r.StatusCode, r.Reason),
	}
	if includeHeaders && len(r.Headers) > 0 {
		out = append(out, "📋 Response headers:")
		for i, h := range r.Headers {
			if i == MaxHeaderLines {
				break
			}
			out = append(out, "   "+h)
		}
	}
	if utf8.Valid(r.Body) {
		out = append(out, "📄 Response body:", Truncate(string(r.Body), MaxBodyChars))
	} else {
		out = append(out, "📄 Binary or undecodable content")
	}
	out = append(out,
		"📊 Statistics:",
		fmt.Sprintf("   Size: %d bytes", len(r.Body)),
		"   Final URL: "+r.FinalURL,
		fmt.Sprintf("   Response time: %.3fs", r.Elapsed.Seconds()),
	)
	return strings.Join(out, "\n")
}

func httpHeader(method, url string) string {
	return "🌐 " + method + " request to " + url + ":"
}
