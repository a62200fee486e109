// gazectl: command line client for the gaze service REST API
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/pkg/web"
)

const usage = `Usage: gazectl [-url URL] <command> [args]

Commands:
  status                     Show sources, counters and the current target
  settings                   Show settings
  set key=value ...          Update settings (e.g. eye_count=12 mapping.invert_x=true)
  preset <name>              Apply a settings preset
  presets                    List settings presets
  camera                     Show camera config
  camera-set key=value ...   Update camera config (e.g. preset=low)
  motion on|off              Enable or disable motion vision
  orientation request|revoke Ask for or drop orientation access
  inputs                     List connected input clients
`

func main() {
	url := flag.String("url", config.URL(), "Service base URL (GAZE_URL)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := httpc.New(strings.TrimRight(*url, "/"))
	if err := run(context.Background(), client, args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *httpc.Client, args []string) error {
	cmd, rest := args[0], args[1:]
	var out interface{}

	switch cmd {
	case "status":
		var st web.Status
		if err := c.Get(ctx, "/api/status", &st); err != nil {
			return err
		}
		printStatus(st)
		return nil

	case "settings":
		out = &map[string]interface{}{}
		if err := c.Get(ctx, "/api/settings", out); err != nil {
			return err
		}

	case "set":
		body, err := parseAssignments(rest)
		if err != nil {
			return err
		}
		out = &map[string]interface{}{}
		if err := c.Do(ctx, http.MethodPatch, "/api/settings", body, out); err != nil {
			return err
		}

	case "preset":
		if len(rest) != 1 {
			return fmt.Errorf("preset takes one name")
		}
		out = &map[string]interface{}{}
		if err := c.Do(ctx, http.MethodPost, "/api/settings/presets/"+rest[0], nil, out); err != nil {
			return err
		}

	case "presets":
		var resp struct {
			Presets []string `json:"presets"`
		}
		if err := c.Get(ctx, "/api/settings/presets", &resp); err != nil {
			return err
		}
		for _, name := range resp.Presets {
			fmt.Println(name)
		}
		return nil

	case "camera":
		out = &map[string]interface{}{}
		if err := c.Get(ctx, "/api/camera", out); err != nil {
			return err
		}

	case "camera-set":
		body, err := parseAssignments(rest)
		if err != nil {
			return err
		}
		out = &map[string]interface{}{}
		if err := c.Do(ctx, http.MethodPatch, "/api/camera", body, out); err != nil {
			return err
		}

	case "motion":
		if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
			return fmt.Errorf("motion takes on or off")
		}
		out = &map[string]interface{}{}
		if err := c.Do(ctx, http.MethodPost, "/api/motion", web.MotionRequest{Enabled: rest[0] == "on"}, out); err != nil {
			return err
		}

	case "orientation":
		if len(rest) != 1 || (rest[0] != "request" && rest[0] != "revoke") {
			return fmt.Errorf("orientation takes request or revoke")
		}
		out = &map[string]interface{}{}
		if err := c.Do(ctx, http.MethodPost, "/api/orientation/"+rest[0], nil, out); err != nil {
			return err
		}

	case "inputs":
		out = &map[string]interface{}{}
		if err := c.Get(ctx, "/api/inputs", out); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseAssignments turns key=value pairs into a JSON body. Dotted keys
// nest ("mapping.deadzone=0.1"). Values that parse as numbers or booleans
// are sent as such.
func parseAssignments(args []string) (map[string]interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected key=value pairs")
	}
	body := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad assignment %q", arg)
		}

		target := body
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			next, ok := target[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				target[part] = next
			}
			target = next
		}
		target[parts[len(parts)-1]] = parseValue(value)
	}
	return body, nil
}

func parseValue(value string) interface{} {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func printStatus(st web.Status) {
	fmt.Printf("🎯 Target:   %s (%.0f, %.0f)\n", st.Target.Source, st.Target.X, st.Target.Y)
	fmt.Printf("🖥️  Viewport: %.0fx%.0f\n", st.Viewport.Width, st.Viewport.Height)
	fmt.Println("📡 Sources:")
	for _, src := range st.Sources {
		mark := "⚪"
		switch {
		case src.Available:
			mark = "🟢"
		case src.Error != "":
			mark = "🔴"
		case !src.Wired:
			mark = "⚫"
		}
		line := fmt.Sprintf("   %s %-12s enabled=%v permission=%s", mark, src.Name, src.Enabled, src.Permission)
		if src.Error != "" {
			line += " error=" + src.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("👀 Eyes: %d  ticks=%d published=%d\n", st.Render.Eyes, st.Render.Ticks, st.Render.Published)
	fmt.Printf("🔌 Inputs: %d  viewers=%d  received=%d rejected=%d\n", st.Inputs, st.Viewers.Clients, st.Received, st.Rejected)
}
