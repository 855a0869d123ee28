package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/client"
	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/model"
)

type globals struct {
	server   string
	user     string
	token    string
	adminKey string
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, g globals, args []string) error
}

var commands = []command{
	{"users", "list users with status and unread counts", runUsers},
	{"send", "send a message: send --to <user|all> <text>", runSend},
	{"tail", "follow a conversation: tail [--with <user>]", runTail},
	{"status", "set your status: status <online|offline|busy>", runStatus},
	{"login", "print a bearer token: login --email <e> --password <p>", runLogin},
	{"add-user", "seed a user (admin): add-user --id <id> --name <name>", runAddUser},
	{"add-project", "seed a project (admin): add-project --name <name>", runAddProject},
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return err
	}
	logger.Setup(cfg)

	var g globals
	flagSet := pflag.NewFlagSet("chatctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&g.server, "server", envOr("CHAT_SERVER_URL", "http://localhost:"+cfg.Port), "chat server base URL")
	flagSet.StringVarP(&g.user, "user", "u", os.Getenv("CHAT_USER"), "act as this user id")
	flagSet.StringVar(&g.token, "token", os.Getenv("CHAT_TOKEN"), "bearer token")
	flagSet.StringVar(&g.adminKey, "admin-key", cfg.AdminAPIKey, "admin API key for seeding commands")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return pflag.ErrHelp
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, g, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q (run chatctl --help)", args[0])
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "chatctl talks to a chat server.\n\nUsage:\n  chatctl [flags] <command> [args]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (g globals) api() (*client.API, error) {
	return client.NewAPI(client.APIConfig{BaseURL: g.server, Token: g.token, AdminAPIKey: g.adminKey})
}

func (g globals) requireUser() error {
	if g.user == "" {
		return errors.New("--user is required")
	}
	return nil
}

func runUsers(ctx context.Context, g globals, _ []string) error {
	api, err := g.api()
	if err != nil {
		return err
	}
	users, err := api.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tUNREAD")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", u.ID, u.Name, u.Status, u.UnreadMessages)
	}
	return w.Flush()
}

func runSend(ctx context.Context, g globals, args []string) error {
	var (
		to      string
		project string
		replyTo string
	)
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	fs.StringVar(&to, "to", model.ReceiverAll, "receiver user id, or all")
	fs.StringVar(&project, "project", "", "project id")
	fs.StringVar(&replyTo, "reply-to", "", "id of the message being answered")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := g.requireUser(); err != nil {
		return err
	}
	content := strings.Join(fs.Args(), " ")

	api, err := g.api()
	if err != nil {
		return err
	}
	req := dto.SendMessageRequest{SenderID: g.user, ReceiverID: to, Content: content}
	if project != "" {
		req.ProjectID = &project
	}
	if replyTo != "" {
		req.ReplyTo = &replyTo
	}
	msg, err := api.SendMessage(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(msg.ID)
	return nil
}

func runTail(ctx context.Context, g globals, args []string) error {
	var with, project string
	fs := pflag.NewFlagSet("tail", pflag.ContinueOnError)
	fs.StringVar(&with, "with", "", "conversation partner; empty follows broadcasts only")
	fs.StringVar(&project, "project", "", "project filter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := g.requireUser(); err != nil {
		return err
	}

	session, err := client.Connect(ctx, client.SessionConfig{BaseURL: g.server, UserID: g.user, Token: g.token})
	if err != nil {
		return err
	}
	defer session.Close()

	st := session.Store()
	if project != "" {
		if err := st.SelectProject(&project); err != nil {
			return err
		}
	}
	if with != "" {
		if err := session.Open(ctx, with); err != nil {
			return err
		}
	}

	changes, cancel := st.Subscribe()
	defer cancel()

	printed := map[string]int64{}
	show := func() {
		for _, m := range st.Conversation() {
			if v, ok := printed[m.ID]; ok && v >= m.Version {
				continue
			}
			printed[m.ID] = m.Version
			fmt.Println(formatMessage(m))
		}
	}
	show()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return errors.New("relay connection closed")
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			show()
		}
	}
}

func formatMessage(m model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s -> %s", m.Timestamp.Local().Format(time.Kitchen), m.SenderID, m.ReceiverID)
	if m.Kind() != model.MessageKindText {
		fmt.Fprintf(&b, " [%s]", m.Kind())
	}
	b.WriteString(": ")
	b.WriteString(m.Content)
	if att, ok := model.AttachmentOf(m.Body); ok {
		fmt.Fprintf(&b, " <%s>", att.FileName)
	}
	if m.IsEdited {
		b.WriteString(" (edited)")
	}
	return b.String()
}

func runStatus(ctx context.Context, g globals, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: status <online|offline|busy>")
	}
	status, err := model.ParseUserStatus(args[0])
	if err != nil {
		return err
	}
	if err := g.requireUser(); err != nil {
		return err
	}
	api, err := g.api()
	if err != nil {
		return err
	}
	user, err := api.SetStatus(ctx, g.user, status)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "status updated", "user_id", user.ID, "status", user.Status)
	return nil
}

func runLogin(ctx context.Context, g globals, args []string) error {
	var email, password string
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	api, err := g.api()
	if err != nil {
		return err
	}
	res, err := api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Println(res.Token)
	return nil
}

func runAddUser(ctx context.Context, g globals, args []string) error {
	var req dto.CreateUserRequest
	fs := pflag.NewFlagSet("add-user", pflag.ContinueOnError)
	fs.StringVar(&req.ID, "id", "", "user id (generated when empty)")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Role, "role", "", "role (default member)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	api, err := g.api()
	if err != nil {
		return err
	}
	user, err := api.CreateUser(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(user.ID)
	return nil
}

func runAddProject(ctx context.Context, g globals, args []string) error {
	var req dto.CreateProjectRequest
	fs := pflag.NewFlagSet("add-project", pflag.ContinueOnError)
	fs.StringVar(&req.ID, "id", "", "project id (generated when empty)")
	fs.StringVar(&req.Name, "name", "", "project name")
	fs.StringVar(&req.Color, "color", "", "display color")
	fs.StringVar(&req.Description, "description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	api, err := g.api()
	if err != nil {
		return err
	}
	project, err := api.CreateProject(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(project.ID)
	return nil
}
