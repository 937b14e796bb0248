package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"cdptour/pkg/api"
	"cdptour/pkg/model"

	"github.com/spf13/cobra"
)

var (
	runDevtools string
	runTarget   string
	runTour     string
	runRole     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a tour on a browser page",
	Long: `Attach to a browser page and run a tour. The overlay buttons drive the tour;
the terminal also accepts commands:

  n        next step
  p        previous step
  g <N>    go to step N (1-based)
  s        skip the tour
  q        close the tour and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := model.TourType(runTour)
		if !t.Valid() {
			return fmt.Errorf("unknown tour %q", runTour)
		}
		svc, _, err := newService()
		if err != nil {
			return err
		}
		defer svc.Shutdown()

		id, err := svc.StartSession(model.SessionConfig{
			DevToolsURL: runDevtools,
			Target:      model.TargetID(runTarget),
			Role:        runRole,
		})
		if err != nil {
			return err
		}
		events, err := svc.SubscribeEvents(id)
		if err != nil {
			return err
		}
		if err := svc.StartTour(id, t); err != nil {
			return err
		}
		if st, _ := svc.State(id); !st.Running {
			fmt.Printf("tour %s has no steps\n", t)
			return nil
		}
		fmt.Printf("tour %s started\n", t)
		return interact(svc, id, events)
	},
}

// interact 读取终端命令直到导览结束或收到中断信号
func interact(svc api.Service, id model.SessionID, events <-chan model.Event) error {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case "step_changed":
				st, _ := svc.State(id)
				fmt.Printf("step %d/%d\n", evt.StepIndex+1, st.TotalSteps)
			case "tour_ended":
				fmt.Printf("tour %s ended: %s\n", evt.Tour, evt.Outcome)
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				return svc.Close(id)
			}
			if err := command(svc, id, line); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case <-sig:
			return svc.Close(id)
		}
	}
}

func command(svc api.Service, id model.SessionID, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "n":
		return svc.Next(id)
	case "p":
		return svc.Previous(id)
	case "s":
		return svc.Skip(id)
	case "q":
		return svc.Close(id)
	case "g":
		if len(fields) != 2 {
			return fmt.Errorf("usage: g <step>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid step %q", fields[1])
		}
		return svc.GoTo(id, n-1)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func init() {
	runCmd.Flags().StringVar(&runDevtools, "devtools", "", "DevTools HTTP endpoint (defaults to config)")
	runCmd.Flags().StringVar(&runTarget, "target", "", "page target id (defaults to the first page)")
	runCmd.Flags().StringVar(&runTour, "tour", string(model.TourOverview), "tour to run")
	runCmd.Flags().StringVar(&runRole, "role", "member", "role of the current user")
}
