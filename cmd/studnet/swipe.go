package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"studnet/internal/app"
	"studnet/internal/config"
	"studnet/internal/domain/profile"
	"studnet/internal/session"
	"studnet/internal/swipe"
	"studnet/internal/usecase"
	"studnet/internal/view"

	"github.com/spf13/cobra"
)

var (
	swipeInitData string
	swipeVerbose  bool
)

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Browse candidates from the terminal",
	Long: `Open a session for the Telegram user in TELEGRAM_INIT_DATA (or the demo
user) and browse candidates with line commands. Type "help" for the list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if swipeInitData != "" {
			cfg.Telegram.InitData = swipeInitData
		}

		logger := log.New(io.Discard, "", 0)
		if swipeVerbose {
			logger = log.New(os.Stderr, "", log.LstdFlags)
		}
		return runSwipe(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	swipeCmd.Flags().StringVar(&swipeInitData, "init-data", "", "Telegram init data, overrides TELEGRAM_INIT_DATA")
	swipeCmd.Flags().BoolVarP(&swipeVerbose, "verbose", "v", false, "log to stderr")
}

const swipeHelp = `commands:
  l, like              like the top card
  p, pass              pass the top card
  tab all|incoming     switch list
  filter k=v ...       city=, uni=, tags=a,b ("filter clear" resets)
  reload               refetch the current list
  matches              show your matches
  unmatch <id>         remove a match
  me                   show your profile
  q, quit              exit`

func runSwipe(ctx context.Context, cfg config.Config, logger *log.Logger, in io.Reader, out io.Writer) error {
	c, err := app.NewContainerWithLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	t := &terminal{out: out, wait: cfg.Swipe.LoadTimeout}
	c.Sessions.SetNotifier(t)

	s, err := c.Sessions.Open(ctx, cfg.Telegram.InitData)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	t.session = s

	t.printf("Signed in as %s (id %d)%s\n", s.Provider.User().DisplayName(), s.UserID, demoSuffix(s.Provider.Demo()))
	t.settle()
	t.render(ctx)

	sc := bufio.NewScanner(in)
	for {
		t.printf("> ")
		if !sc.Scan() {
			break
		}
		quit, err := t.exec(ctx, sc.Text())
		if err != nil {
			t.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

func demoSuffix(demo bool) string {
	if demo {
		return " [demo]"
	}
	return ""
}

// terminal renders one session as text.
type terminal struct {
	mu      sync.Mutex
	out     io.Writer
	wait    time.Duration
	session *session.Session
}

var _ session.Notifier = (*terminal)(nil)

func (t *terminal) NotifyMatch(_ int64, p profile.Profile) {
	t.printf("\n*** It's a match with %s! ***\n", view.Present(p).Title)
}

func (t *terminal) NotifyView(int64, view.CardView) {}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	s := t.session
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		t.printf("%s\n", swipeHelp)
		return false, nil
	case "l", "like", "p", "pass":
		d := swipe.Like
		if cmd[0] == 'p' {
			d = swipe.Pass
		}
		if !s.Engine.Decide(d) {
			t.printf("nothing to %s\n", d)
			return false, nil
		}
		// No animation to wait for in a terminal.
		s.Engine.CompleteExit()
	case "tab":
		if len(args) != 1 || !swipe.Tab(args[0]).Valid() {
			return false, fmt.Errorf("usage: tab all|incoming")
		}
		s.Engine.SetTab(swipe.Tab(args[0]))
	case "filter":
		f, err := parseFilter(args)
		if err != nil {
			return false, err
		}
		s.Engine.SetFilter(f)
	case "reload", "r":
		s.Engine.Reload()
	case "matches", "m":
		t.renderMatches(s.NetList.List(ctx, s.UserID))
		return false, nil
	case "unmatch":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: unmatch <profile id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid profile id %q", args[0])
		}
		if err := s.NetList.Unmatch(ctx, s.UserID, id); err != nil {
			return false, err
		}
		t.printf("match %d removed\n", id)
		return false, nil
	case "me":
		own, err := s.Profiles.Own(ctx, s.UserID)
		if err != nil {
			return false, err
		}
		if !own.Exists {
			t.printf("You have no profile yet. Create one in the mini-app.\n")
			return false, nil
		}
		t.printCard(view.Present(own.Profile))
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}

	t.settle()
	t.render(ctx)
	return false, nil
}

// parseFilter reads "city=X uni=Y tags=a,b". "clear" returns the zero filter.
func parseFilter(args []string) (profile.Filter, error) {
	var f profile.Filter
	if len(args) == 1 && strings.EqualFold(args[0], "clear") {
		return f, nil
	}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return profile.Filter{}, fmt.Errorf("bad filter %q, want key=value", a)
		}
		v = strings.ReplaceAll(v, "_", " ")
		switch strings.ToLower(k) {
		case "city":
			f.City = v
		case "uni", "university":
			f.University = v
		case "tags", "interests":
			f.Interests = strings.Split(v, ",")
		default:
			return profile.Filter{}, fmt.Errorf("unknown filter %q", k)
		}
	}
	return f.Normalized(), nil
}

func (t *terminal) settle() {
	select {
	case <-t.session.Engine.Settled():
	case <-time.After(t.wait):
	}
}

func (t *terminal) render(ctx context.Context) {
	s := t.session
	v := s.View(ctx)

	if v.ShowTutorial {
		t.printf("Tip: type l to like, p to pass. help lists every command.\n")
		_ = s.Presenter.DismissTutorial(ctx)
	}
	if v.ShowIncomingTip {
		t.printf("Tip: these people already liked you. Like back to match.\n")
		_ = s.Presenter.DismissIncomingTip(ctx)
	}

	switch {
	case v.Card != nil:
		t.printCard(*v.Card)
	case v.Loading:
		t.printf("Loading...\n")
	case v.Retry:
		t.printf("Could not load candidates. Type reload to try again.\n")
	case v.Empty:
		t.printf("No more candidates here.\n")
	}

	stale := ""
	if v.Stale {
		stale = " (offline copy)"
	}
	t.printf("[%s] %d left, %d incoming likes%s\n", v.Tab, v.Remaining, v.IncomingBadge, stale)
}

func (t *terminal) printCard(c view.Card) {
	t.printf("----\n")
	for _, l := range c.Lines() {
		t.printf("  %s\n", l)
	}
	t.printf("----\n")
}

func (t *terminal) renderMatches(nl usecase.NetList) {
	if nl.Failed {
		t.printf("Could not load matches.\n")
		return
	}
	if len(nl.Matches) == 0 {
		t.printf("No matches yet.\n")
		return
	}
	for _, p := range nl.Matches {
		c := view.Present(p)
		t.printf("  #%d %s  %s\n", c.ProfileID, c.Title, c.Subtitle)
	}
	if nl.Stale {
		t.printf("(offline copy)\n")
	}
}
