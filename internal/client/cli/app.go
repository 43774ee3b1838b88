// Package cli implements the interactive terminal client: a small REPL over
// the typed API client, with prompts for credentials and account fields.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/clipstream/clipstream/internal/client/api"
	"github.com/clipstream/clipstream/internal/client/config"
)

// App holds the REPL state: the API client with its in-memory session and
// the username shown in the prompt.
type App struct {
	config   *config.Config
	api      *api.Client
	userName string
	reader   *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	return &App{
		config: cfg,
		api:    api.New(cfg),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.IsLoggedIn()
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return "> "
	}
	return fmt.Sprintf("(%s) > ", a.userName)
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to the clipstream CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.reader, "Full name", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout, "Password")
	if err != nil {
		return err
	}
	avatarPath, err := GetSimpleText(a.reader, "Avatar image path", os.Stdout)
	if err != nil {
		return err
	}
	coverPath, err := GetSimpleText(a.reader, "Cover image path (optional)", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.api.Register(ctx, api.RegisterParams{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		Password:       password,
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		printlnFn("Registration failed:", err)
		return err
	}

	printlnFn("Registered as", user.Username, "- now log in")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Username or email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout, "Password")
	if err != nil {
		return err
	}

	user, err := a.api.Login(ctx, login, password)
	if err != nil {
		printlnFn("Login failed:", err)
		return err
	}

	a.userName = user.Username
	printlnFn("Logged in as", user.Username)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	user, err := a.api.CurrentUser(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn(fmt.Sprintf("%s <%s> (%s)", user.Username, user.Email, user.FullName))
	return nil
}

func (a *App) UpdateAccount(ctx context.Context) error {
	fullName, err := GetSimpleText(a.reader, "Full name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.api.UpdateAccount(ctx, fullName, email)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Account updated for", user.Username)
	return nil
}

func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: avatar <path>")
		return nil
	}
	user, err := a.api.UpdateAvatar(ctx, args[0])
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Avatar updated:", user.Avatar)
	return nil
}

func (a *App) Cover(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: cover <path>")
		return nil
	}
	user, err := a.api.UpdateCoverImage(ctx, args[0])
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Cover image updated:", user.CoverImage)
	return nil
}

func (a *App) Channel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: channel <username>")
		return nil
	}
	p, err := a.api.Channel(ctx, args[0])
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn(fmt.Sprintf("%s (%s): %d subscribers, subscribed to %d",
		p.Username, p.FullName, p.SubscriberCount, p.SubscribedToCount))
	if p.IsSubscribed {
		printlnFn("You are subscribed to this channel")
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	entries, err := a.api.WatchHistory(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(entries) == 0 {
		printlnFn("No watch history yet")
		return nil
	}
	for _, e := range entries {
		printlnFn(fmt.Sprintf("%s  %s (by %s, watched %s)",
			e.ID, e.Title, e.Owner.Username, e.WatchedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

func (a *App) Watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: watch <videoID>")
		return nil
	}
	if err := a.api.RecordWatch(ctx, args[0]); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Recorded")
	return nil
}

func (a *App) Subscribe(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: sub <channelID>")
		return nil
	}
	if err := a.api.Subscribe(ctx, args[0]); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Subscribed")
	return nil
}

func (a *App) Unsubscribe(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: unsub <channelID>")
		return nil
	}
	if err := a.api.Unsubscribe(ctx, args[0]); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Unsubscribed")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := GetPassword(os.Stdout, "Current password")
	if err != nil {
		return err
	}
	newPassword, err := GetPassword(os.Stdout, "New password")
	if err != nil {
		return err
	}

	if err := a.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		printlnFn("Error:", err)
		return err
	}

	a.userName = ""
	printlnFn("Password changed; log in again with the new password")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}
