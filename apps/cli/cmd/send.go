package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/arkadyv/reqforge/packages/auth"
	"github.com/arkadyv/reqforge/packages/core/config"
	"github.com/arkadyv/reqforge/packages/descriptor"
	"github.com/arkadyv/reqforge/packages/output"
	"github.com/arkadyv/reqforge/packages/session"
	"github.com/arkadyv/reqforge/packages/store"
)

// WatchDebounceDelay coalesces bursts of file events in watch mode.
const WatchDebounceDelay = 300 * time.Millisecond

var sendCmd = &cobra.Command{
	Use:   "send [URL]",
	Short: "Execute an HTTP request",
	Long: `Execute a request described by flags, or replay a saved one.

Examples:
  reqforge send https://api.example.com/users
  reqforge send -m POST -j '{"name":"ada"}' https://api.example.com/users
  reqforge send -A bearer:{{token}} --env prod https://api.example.com/me
  reqforge send --save get-user https://api.example.com/users/42
  reqforge send --load get-user
  reqforge send --load login --capture-as login
  reqforge send -H 'X-Session: {{login.token}}' https://api.example.com/orders`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

var (
	methodFlag      string
	headerFlags     []string
	bodyFlag        string
	jsonFlag        string
	formFlags       []string
	authFlag        string
	timeoutFlag     int
	noRedirectsFlag bool
	saveFlag        string
	loadFlag        string
	collectionFlag  string
	noExecuteFlag   bool
	envFlag         string
	varFlags        []string
	captureAsFlag   string
	outputFlag      string
	includeHdrsFlag bool
	verboseFlag     bool
	noColorFlag     bool
	noHistoryFlag   bool
	watchFlag       bool
)

func init() {
	sendCmd.Flags().StringVarP(&methodFlag, "method", "m", "GET", "HTTP method")
	sendCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "request header (name:value, repeatable)")
	sendCmd.Flags().StringVarP(&bodyFlag, "body", "b", "", "raw request body")
	sendCmd.Flags().StringVarP(&jsonFlag, "json", "j", "", "JSON request body")
	sendCmd.Flags().StringArrayVarP(&formFlags, "form", "f", nil, "form field (key=value, repeatable)")
	sendCmd.Flags().StringVarP(&authFlag, "auth", "A", "", "auth directive (bearer:…, basic:u:p, apikey:H:V)")
	sendCmd.Flags().IntVarP(&timeoutFlag, "timeout", "t", 0, "timeout in seconds")
	sendCmd.Flags().BoolVar(&noRedirectsFlag, "no-redirects", false, "return 3xx responses instead of following them")
	sendCmd.Flags().StringVar(&saveFlag, "save", "", "save the request under this name")
	sendCmd.Flags().StringVar(&loadFlag, "load", "", "replay a saved request by name")
	sendCmd.Flags().StringVar(&collectionFlag, "collection", "", "collection tag used with --save")
	sendCmd.Flags().BoolVar(&noExecuteFlag, "no-execute", false, "with --save: store the request without sending it")
	sendCmd.Flags().StringVarP(&envFlag, "env", "e", "", "environment seeding template variables")
	sendCmd.Flags().StringArrayVar(&varFlags, "var", nil, "explicit variable override (name=value, repeatable)")
	sendCmd.Flags().StringVar(&captureAsFlag, "capture-as", "", "capture the response body for {{name.field}} chaining")
	sendCmd.Flags().StringVarP(&outputFlag, "output", "o", "auto", "output format: auto, json, yaml, table, raw")
	sendCmd.Flags().BoolVarP(&includeHdrsFlag, "include-headers", "i", false, "show response headers")
	sendCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "show timing and size footer")
	sendCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	sendCmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "skip the history log for this request")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "with --load: re-run when the store changes")
}

func runSend(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}

	op, err := buildOperation(cfg, args)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(
		output.WithNoColor(noColorFlag || cfg.GetNoColor()),
		output.WithVerbose(verboseFlag),
		output.WithShowHeaders(includeHdrsFlag),
	)
	sess := session.New(cfg, st, version, session.WithFormatter(formatter))

	run := func() error {
		result, err := sess.Run(cmd.Context(), op)
		if err != nil {
			if store.IsCorrupt(err) {
				return fmt.Errorf("%w\nrun 'reqforge delete --reset' to reinitialize the store", err)
			}
			if loadFlag != "" && store.IsNotFound(err) {
				if hint := suggestName(st, loadFlag); hint != "" {
					return fmt.Errorf("%w (did you mean %q?)", err, hint)
				}
			}
			return err
		}
		if result.Output != "" {
			fmt.Fprintln(cmd.OutOrStdout(), result.Output)
		}
		if result.Saved != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "saved request %q\n", result.Saved.Name)
		}
		return nil
	}

	if err := run(); err != nil {
		return err
	}

	if watchFlag && loadFlag != "" {
		return watchAndRerun(cmd.Context(), st.Dir(), run)
	}
	return nil
}

// buildOperation maps the send flags onto one session operation. The
// environment field stays empty unless --env was given: the session falls
// back to the configured default itself and tolerates one that was never
// created, while an explicit --env must exist.
func buildOperation(cfg *config.Config, args []string) (session.Operation, error) {
	format, ok := output.ParseFormat(outputFlag)
	if !ok {
		return session.Operation{}, fmt.Errorf("unknown output format %q", outputFlag)
	}

	op := session.Operation{
		LoadName:    loadFlag,
		SaveName:    saveFlag,
		Collection:  collectionFlag,
		Environment: envFlag,
		CaptureAs:   captureAsFlag,
		Format:      format,
		Execute:     !noExecuteFlag,
		NoHistory:   noHistoryFlag,
	}

	var err error
	if op.Overrides, err = parsePairs(varFlags, "="); err != nil {
		return session.Operation{}, err
	}

	if loadFlag == "" {
		d, err := buildDescriptor(args)
		if err != nil {
			return session.Operation{}, err
		}
		d.FollowRedirects = cfg.GetFollowRedirects() && !noRedirectsFlag
		if timeoutFlag == 0 && cfg.TimeoutSeconds > 0 {
			d.SetTimeout(cfg.TimeoutSeconds)
		}
		op.Descriptor = d
	}
	return op, nil
}

func buildDescriptor(args []string) (*descriptor.Descriptor, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("a URL is required unless --load names a saved request")
	}

	d := descriptor.New(methodFlag, args[0])

	for _, raw := range headerFlags {
		name, value, found := strings.Cut(raw, ":")
		if !found {
			return nil, fmt.Errorf("invalid header %q: expected name:value", raw)
		}
		d.SetHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	bodies := 0
	if bodyFlag != "" {
		d.SetRawBody([]byte(bodyFlag), "")
		bodies++
	}
	if jsonFlag != "" {
		d.SetJSONBody(jsonFlag)
		bodies++
	}
	if len(formFlags) > 0 {
		fields := make([]descriptor.FormField, 0, len(formFlags))
		for _, raw := range formFlags {
			key, value, found := strings.Cut(raw, "=")
			if !found {
				return nil, fmt.Errorf("invalid form field %q: expected key=value", raw)
			}
			fields = append(fields, descriptor.FormField{Key: key, Value: value})
		}
		d.SetFormBody(fields)
		bodies++
	}
	if bodies > 1 {
		return nil, fmt.Errorf("--body, --json and --form are mutually exclusive")
	}

	if authFlag != "" {
		spec, err := auth.ParseDirective(authFlag)
		if err != nil {
			return nil, err
		}
		d.SetAuth(spec)
	}

	if timeoutFlag > 0 {
		d.SetTimeout(timeoutFlag)
	}
	d.FollowRedirects = !noRedirectsFlag

	return d, nil
}

func parsePairs(raw []string, sep string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, found := strings.Cut(item, sep)
		if !found {
			return nil, fmt.Errorf("invalid pair %q: expected key%svalue", item, sep)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// watchAndRerun re-executes run whenever the store's state files change,
// debounced so an atomic temp-write-rename counts as one change.
func watchAndRerun(ctx context.Context, dir string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", dir)

	var timer *time.Timer
	rerun := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) == ".lock" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-rerun:
			if err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}
