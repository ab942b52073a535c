// Command folioctl is the operator tool of a folio chat deployment.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio-chat/auth"
	"folio-chat/domain"
	"folio-chat/feed"
	"folio-chat/identity"
	"folio-chat/infrastructure/grpc/client"
	"folio-chat/repositories"
	"folio-chat/services"
	"folio-chat/ui"

	"github.com/Netflix/go-env"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgraph-io/badger/v4"
	"github.com/docopt/docopt-go"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const version = "0.1.0"

const usage = `Folio chat control.

Usage:
    folioctl mint-token --user=<id> --name=<name> [--avatar=<url>]
    folioctl list [--addr=<addr>] [--channel=<channel>]
    folioctl send [--addr=<addr>] [--channel=<channel>] --token=<jwt> <text>
    folioctl watch [--addr=<addr>] [--channel=<channel>]
    folioctl chat [--addr=<addr>] [--channel=<channel>] [--token=<jwt>]
    folioctl inspect --db=<path> [--channel=<channel>]

Options:
    -h --help              Show this screen.
    --version              Show version.
    --addr=<addr>          Docstore address, DOCSTORE_ADDR by default.
    --channel=<channel>    Channel name, DEFAULT_CHANNEL by default.
    --user=<id>            User id carried by the token.
    --name=<name>          Display name carried by the token.
    --avatar=<url>         Avatar url carried by the token.
    --token=<jwt>          Token of the author.
    --db=<path>            Badger directory, opened read-only.`

type ctlConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	DocstoreAddr      string        `env:"DOCSTORE_ADDR,default=localhost:50051"`
	DefaultChannel    string        `env:"DEFAULT_CHANNEL,default=messages"`
	LogLevel          string        `env:"LOG_LEVEL,default=WARN"`
}

type command struct {
	opts   docopt.Opts
	config ctlConfig
	log    *slog.Logger
	out    io.Writer
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "folioctl: %v\n", err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	var config ctlConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	cmd := &command{opts: opts, config: config, log: logs.GetLoggerFromString(config.LogLevel), out: os.Stdout}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cmd.flag("mint-token"):
		return cmd.mintToken()
	case cmd.flag("list"):
		return cmd.list(ctx)
	case cmd.flag("send"):
		return cmd.send(ctx)
	case cmd.flag("watch"):
		return cmd.watch(ctx)
	case cmd.flag("chat"):
		return cmd.chatPane(ctx)
	case cmd.flag("inspect"):
		return cmd.inspect(ctx)
	}
	return nil
}

func (c *command) flag(name string) bool {
	value, _ := c.opts.Bool(name)
	return value
}

func (c *command) option(name, fallback string) string {
	if value, err := c.opts.String(name); err == nil && value != "" {
		return value
	}
	return fallback
}

func (c *command) tokens() (*auth.Tokens, error) {
	if c.config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return auth.NewTokens(c.config.JWTSecret, c.config.AuthTokenDuration), nil
}

func (c *command) chat() (*services.ChatService, func(), error) {
	conn, err := client.Dial(c.option("--addr", c.config.DocstoreAddr))
	if err != nil {
		return nil, nil, err
	}
	store := client.NewDocumentStoreClient(c.log, conn)
	return services.NewChatService(c.log, store, nil, 0), func() { _ = conn.Close() }, nil
}

func (c *command) channel() string {
	return c.option("--channel", c.config.DefaultChannel)
}

func (c *command) mintToken() error {
	tokens, err := c.tokens()
	if err != nil {
		return err
	}
	author := domain.Identity{ID: c.option("--user", ""), DisplayName: c.option("--name", "")}
	if avatar := c.option("--avatar", ""); avatar != "" {
		author.AvatarURL = &avatar
	}
	token, err := tokens.Generate(author)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	return nil
}

func (c *command) list(ctx context.Context) error {
	chat, closeConn, err := c.chat()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	messages, err := chat.GetMessages(ctx, c.channel())
	if err != nil {
		return err
	}
	renderMessages(c.out, messages)
	return nil
}

func (c *command) send(ctx context.Context) error {
	tokens, err := c.tokens()
	if err != nil {
		return err
	}
	token := c.option("--token", "")
	claims, err := tokens.Validate(token)
	if err != nil {
		return err
	}
	author := claims.Identity()

	chat, closeConn, err := c.chat()
	if err != nil {
		return err
	}
	defer closeConn()

	id, err := chat.PostMessage(auth.WithToken(ctx, token), c.channel(), c.option("<text>", ""), &author)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, id)
	return nil
}

// watch prints every new message of the channel until interrupted.
func (c *command) watch(ctx context.Context) error {
	chat, closeConn, err := c.chat()
	if err != nil {
		return err
	}
	defer closeConn()

	pane := chat.OpenPane(identity.NewSession(c.log, nil))
	defer pane.Unmount()
	if err := pane.Mount(c.channel()); err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Gray.Sprintf("watching #%s, ctrl-c to stop", c.channel()))

	seen := make(map[string]struct{})
	state := domain.StateConnecting
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-pane.Updates():
			if !ok {
				return nil
			}
			if update.State != state {
				state = update.State
				printState(c.out, update)
			}
			for _, message := range update.Items {
				if _, ok := seen[message.ID]; ok {
					continue
				}
				seen[message.ID] = struct{}{}
				printMessage(c.out, message)
			}
		}
	}
}

// chatPane runs the terminal chat. Without a token the pane is read-only.
func (c *command) chatPane(ctx context.Context) error {
	var authenticator identity.Authenticator
	token := c.option("--token", "")
	if token != "" {
		tokens, err := c.tokens()
		if err != nil {
			return err
		}
		authenticator = auth.NewTokenAuthenticator(tokens, nil)
	}
	ctx = auth.WithToken(ctx, token)
	session := identity.NewSession(c.log, authenticator)
	if token != "" {
		if err := session.SignIn(ctx); err != nil {
			return err
		}
	}

	chat, closeConn, err := c.chat()
	if err != nil {
		return err
	}
	defer closeConn()
	pane := chat.OpenPane(session)
	defer pane.Unmount()
	if err := pane.Mount(c.channel()); err != nil {
		return err
	}

	_, err = tea.NewProgram(ui.New(ctx, pane), tea.WithAltScreen()).Run()
	return err
}

// inspect reads a badger store directly, the docstore may keep running.
func (c *command) inspect(ctx context.Context) error {
	db, err := badger.Open(badger.DefaultOptions(c.option("--db", "")).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store := repositories.NewStore(c.log, repositories.NewBadgerBackend(db))
	defer store.Close()

	docs, err := store.Snapshot(ctx, c.channel(), feed.OrderField)
	if err != nil {
		return err
	}
	renderMessages(c.out, feed.ToMessages(docs))
	return nil
}

func renderMessages(out io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Created", "ID", "Author", "Text"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	for _, message := range messages {
		table.Append([]string{formatTime(message.CreatedAt), message.ID, message.AuthorName, message.Text})
	}
	table.Render()
}

func printMessage(out io.Writer, message domain.Message) {
	fmt.Fprintf(out, "%s %s %s\n",
		color.Gray.Sprint(formatTime(message.CreatedAt)),
		color.Cyan.Sprintf("%s:", message.AuthorName),
		message.Text)
}

func printState(out io.Writer, update feed.Update) {
	switch update.State {
	case domain.StateLive:
		fmt.Fprintln(out, color.Green.Sprint("● live"))
	case domain.StateError:
		fmt.Fprintln(out, color.Red.Sprintf("● error: %v", update.Err))
	default:
		fmt.Fprintln(out, color.Yellow.Sprint("● connecting"))
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "pending"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
