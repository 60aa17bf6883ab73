package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

type target struct {
	ID        string    `json:"id"`
	Interval  int       `json:"interval"`
	Paused    bool      `json:"paused"`
	CreatedAt time.Time `json:"created_at"`
	Latest    *struct {
		Status         string  `json:"status"`
		ResponseTimeMS float64 `json:"response_time_ms"`
		AvgResponseMS  float64 `json:"avg_response_ms"`
	} `json:"latest"`
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	api = strings.TrimRight(api, "/")

	cmd := "add"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	args := os.Args[min(len(os.Args), 2):]

	var err error
	switch cmd {
	case "add":
		err = add(api, args)
	case "list", "ls":
		err = list(api)
	case "pause":
		err = withTarget(args, func(id string) error { return call(api, http.MethodPost, targetPath(id, "/pause"), nil, nil) })
	case "rm", "remove":
		err = withTarget(args, func(id string) error { return call(api, http.MethodDelete, targetPath(id, ""), nil, nil) })
	case "sync":
		var out map[string]int
		if err = call(api, http.MethodPost, "/api/sync", nil, &out); err == nil {
			fmt.Printf("added %d, changed %d, removed %d (%d total)\n", out["added"], out["changed"], out["removed"], out["total"])
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: cli [add [url [seconds]] | list | pause <url> | rm <url> | sync]")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func add(api string, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	prompt := func(q string) string {
		fmt.Print(q)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	var raw, every string
	if len(args) > 0 {
		raw = args[0]
	} else {
		raw = prompt("Enter a site URL to monitor (e.g., https://example.com): ")
	}
	if len(args) > 1 {
		every = args[1]
	} else if len(args) == 0 {
		every = prompt("Check every how many seconds? [server default]: ")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return fmt.Errorf("invalid URL %q", raw)
	}
	payload := map[string]any{"url": raw}
	if every != "" {
		n, err := strconv.Atoi(every)
		if err != nil || n < 1 {
			return fmt.Errorf("interval must be a whole number of seconds, got %q", every)
		}
		payload["interval"] = n
	}

	var out struct {
		Target target `json:"target"`
	}
	if err := call(api, http.MethodPost, "/api/targets", payload, &out); err != nil {
		return err
	}
	fmt.Printf("Added %s, checked every %ds.\n", out.Target.ID, out.Target.Interval)
	return nil
}

func list(api string) error {
	var ts []target
	if err := call(api, http.MethodGet, "/api/targets", nil, &ts); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tEVERY\tSTATUS\tLAST\tAVG\tADDED")
	for _, t := range ts {
		status, last, avg := "-", "-", "-"
		if t.Latest != nil {
			status = t.Latest.Status
			last = ms(t.Latest.ResponseTimeMS)
			avg = ms(t.Latest.AvgResponseMS)
		}
		if t.Paused {
			status = "paused"
		}
		fmt.Fprintf(tw, "%s\t%ds\t%s\t%s\t%s\t%s\n", t.ID, t.Interval, status, last, avg, humanize.Time(t.CreatedAt))
	}
	return tw.Flush()
}

func ms(v float64) string {
	if v < 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fms", v)
}

func withTarget(args []string, fn func(id string) error) error {
	if len(args) == 0 {
		return fmt.Errorf("missing target URL")
	}
	if err := fn(args[0]); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func targetPath(id, rest string) string {
	return "/api/targets/" + url.PathEscape(id) + rest
}

func call(api, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, api+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("API returned %s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("API returned %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
