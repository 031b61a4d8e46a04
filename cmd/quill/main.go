// Command quill is a terminal coding agent: it sends a task to a model,
// executes the tools the model requests under an approval policy, and loops
// until the model reports completion.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ktully/quill/config"
	"github.com/ktully/quill/history"
	"github.com/ktully/quill/llmclient"
	"github.com/ktully/quill/taskloop"
	"github.com/ktully/quill/tools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "quill",
		Short:         "An autonomous coding agent for your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/quill/config.yaml)")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newResumeCmd(&configPath))
	root.AddCommand(newTasksCmd())
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>",
		Short: "Start a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, logger, err := buildOptions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			task, err := taskloop.New(opts)
			if err != nil {
				return err
			}
			return driveTask(task, func(ctx context.Context) error {
				return task.Run(ctx, strings.Join(args, " "))
			})
		},
	}
}

func newResumeCmd(configPath *string) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "resume [task-id]",
		Short: "Resume a stored task (latest if no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, logger, err := buildOptions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			taskID := ""
			if len(args) == 1 {
				taskID = args[0]
			} else {
				taskID, err = opts.Store.LatestTaskID()
				if err != nil {
					return err
				}
				if taskID == "" {
					return errors.New("no stored tasks to resume")
				}
			}

			task, err := taskloop.Resume(taskID, opts)
			if err != nil {
				return err
			}
			return driveTask(task, func(ctx context.Context) error {
				return task.Continue(ctx, message)
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "new instruction to carry into the resumed task")
	return cmd
}

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List stored tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := history.DefaultDir()
			if err != nil {
				return err
			}
			store, err := history.NewStore(dir)
			if err != nil {
				return err
			}
			tasks, err := store.Tasks()
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("No stored tasks.")
				return nil
			}
			for _, meta := range tasks {
				summary := meta.Task
				if len(summary) > 80 {
					summary = summary[:77] + "..."
				}
				summary = strings.ReplaceAll(summary, "\n", " ")
				fmt.Printf("%s  %s  %s\n", meta.ID, time.Unix(meta.Ts, 0).Format("2006-01-02 15:04"), summary)
			}
			return nil
		},
	}
}

func buildOptions(configPath string) (taskloop.Options, *zap.Logger, error) {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return taskloop.Options{}, nil, err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return taskloop.Options{}, nil, err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return taskloop.Options{}, nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(strings.ToUpper(cfg.Provider) + "_API_KEY")
	}
	client, err := llmclient.NewGollmClient(cfg.Provider, cfg.Model, apiKey)
	if err != nil {
		return taskloop.Options{}, nil, err
	}

	historyDir, err := history.DefaultDir()
	if err != nil {
		return taskloop.Options{}, nil, err
	}
	store, err := history.NewStore(historyDir)
	if err != nil {
		return taskloop.Options{}, nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return taskloop.Options{}, nil, err
	}

	return taskloop.Options{
		Client: client,
		Registry: tools.NewCoreRegistry(cwd, tools.CoreOptions{
			CommandTimeoutSeconds: cfg.CommandTimeoutSeconds,
		}),
		Store:        store,
		Operator:     newConsoleOperator(),
		AutoApproval: cfg.AutoApproval,
		Cwd:          cwd,
		Logger:       logger,
	}, logger, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// driveTask runs the task while printing its events, and cancels it on
// SIGINT/SIGTERM.
func driveTask(task *taskloop.Task, run func(context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nAborting...")
		task.Abort()
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(task.Events())
	}()

	err := run(ctx)
	<-done

	if errors.Is(err, taskloop.ErrTooManyMistakes) {
		fmt.Println("\nThe task stalled after repeated responses without tool use. Resume it with feedback:")
		fmt.Printf("  quill resume %s -m \"<guidance>\"\n", task.ID())
		return nil
	}
	return err
}

func printEvents(events <-chan taskloop.TaskEvent) {
	for ev := range events {
		switch ev.Kind {
		case taskloop.EventAssistantText:
			fmt.Printf("\n%s\n", ev.Data["text"])
		case taskloop.EventAssistantThought:
			fmt.Printf("\n[thinking] %s\n", ev.Data["text"])
		case taskloop.EventToolStart:
			fmt.Printf("\n> %s\n", ev.Data["description"])
		case taskloop.EventToolResult:
			fmt.Printf("  %s\n", ev.Data["message"])
		case taskloop.EventToolDenied:
			fmt.Printf("  denied: %s\n", ev.Data["tool"])
		case taskloop.EventNotification:
			fmt.Printf("\n[%s] %s\n", ev.Data["subtitle"], ev.Data["message"])
		case taskloop.EventError:
			fmt.Printf("  error: %v\n", ev.Data["error"])
		case taskloop.EventAPIRequest:
			fmt.Printf("  [tokens in=%v out=%v cost=$%.3f]\n",
				ev.Data["tokens_in"], ev.Data["tokens_out"], ev.Data["cost"])
		case taskloop.EventTaskEnd:
			fmt.Printf("\nTask finished. Total cost: $%.3f\n", ev.Data["total_cost"])
		}
	}
}

// consoleOperator collects yes/no answers and free-form feedback from stdin.
type consoleOperator struct {
	mu     sync.Mutex
	reader *bufio.Reader
}

func newConsoleOperator() *consoleOperator {
	return &consoleOperator{reader: bufio.NewReader(os.Stdin)}
}

func (o *consoleOperator) Ask(question string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		fmt.Printf("\n%s [y/n]: ", question)
		line, err := o.reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Println("Please answer y or n.")
	}
}

func (o *consoleOperator) AskInput(prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Printf("\n%s ", prompt)
	line, err := o.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (o *consoleOperator) Notify(subtitle, message string) {
	fmt.Printf("\n[%s] %s\n", subtitle, message)
}
