package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/authclient"
)

var errUsage = errors.New("usage")

type command func(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error)

var commands = map[string]command{
	"login":    cmdLogin,
	"signup":   cmdSignup,
	"me":       cmdMe,
	"profile":  cmdProfile,
	"contacts": cmdContacts,
	"posts":    cmdPosts,
	"update":   cmdUpdate,
	"avatar":   cmdAvatar,
	"logout":   cmdLogout,
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func cmdLogin(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error) {
	fs := newFlagSet("login", stderr)
	username := fs.String("username", "", "email or username")
	password := fs.String("password", "", "password (default $AUTHCLIENT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *password == "" {
		*password = os.Getenv("AUTHCLIENT_PASSWORD")
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(stderr, "login requires -username and -password")
		return nil, errUsage
	}

	if err := c.Login(ctx, *username, *password); err != nil {
		return nil, err
	}
	return map[string]string{"status": "logged in"}, nil
}

func cmdSignup(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error) {
	fs := newFlagSet("signup", stderr)
	var in authclient.SignupRequest
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Password, "password", "", "password (default $AUTHCLIENT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if in.Password == "" {
		in.Password = os.Getenv("AUTHCLIENT_PASSWORD")
	}
	return c.Signup(ctx, in)
}

func cmdMe(ctx context.Context, c *authclient.Client, _ []string, _ io.Writer) (any, error) {
	return c.Me(ctx)
}

func cmdProfile(ctx context.Context, c *authclient.Client, _ []string, _ io.Writer) (any, error) {
	return c.Profile(ctx)
}

func cmdContacts(ctx context.Context, c *authclient.Client, _ []string, _ io.Writer) (any, error) {
	return c.Contacts(ctx)
}

func cmdPosts(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error) {
	fs := newFlagSet("posts", stderr)
	user := fs.Int64("user", 0, "user id (default: current user)")
	limit := fs.Int("limit", 10, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *user > 0 {
		return c.UserPosts(ctx, *user, *limit, *offset)
	}
	return c.MyPosts(ctx, *limit, *offset)
}

func cmdUpdate(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error) {
	fs := newFlagSet("update", stderr)
	username := fs.String("username", "", "new username")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.UpdateMe(ctx, authclient.UserUpdate{Username: *username})
}

func cmdAvatar(ctx context.Context, c *authclient.Client, args []string, stderr io.Writer) (any, error) {
	fs := newFlagSet("avatar", stderr)
	path := fs.String("file", "", "image to upload")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path == "" {
		fmt.Fprintln(stderr, "avatar requires -file")
		return nil, errUsage
	}

	f, err := os.Open(*path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.UploadAvatar(ctx, *path, f)
}

func cmdLogout(ctx context.Context, c *authclient.Client, _ []string, _ io.Writer) (any, error) {
	if err := c.Logout(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"status": "logged out"}, nil
}
