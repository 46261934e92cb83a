// Command blogctl reads and comments on posts as an anonymous visitor.
// The visitor token is created on first use and stored under the user
// config directory so repeat views are not counted twice.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/client"
	"inkwell/internal/models"
	"inkwell/internal/visitor"

	"golang.org/x/term"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: blogctl [-server URL] [-state FILE] <command> [args]

Commands:
  list [-limit N] [-offset N]                      List posts, newest first
  view <id>                                        Read a post (counts one view)
  comment <id> -name NAME -rating 1-5 -text TEXT   Comment on a post
  login -u USERNAME                                Check staff credentials
  whoami                                           Print this visitor's token`)
}

func main() {
	server := flag.String("server", envOr("INKWELL_SERVER", "http://localhost:5000"), "API base URL")
	state := flag.String("state", "", "Visitor state file (default: user config dir)")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "Request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	path := *state
	if path == "" {
		p, err := visitor.DefaultPath()
		if err != nil {
			fail(err)
		}
		path = p
	}

	c := client.New(*server)
	c.Timeout = *timeout
	id := visitor.New(visitor.FileStore{Path: path})

	var err error
	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "list":
		err = list(c, args)
	case "view":
		err = view(c, id, args)
	case "comment":
		err = comment(c, id, args)
	case "login":
		err = login(c, args)
	case "whoami":
		var tok string
		if tok, err = id.GetOrCreate(); err == nil {
			fmt.Println(tok)
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func parseID(args []string) (uint, []string, error) {
	if len(args) < 1 {
		return 0, nil, errors.New("post id required")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || n == 0 {
		return 0, nil, fmt.Errorf("invalid post id %q", args[0])
	}
	return uint(n), args[1:], nil
}

func list(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Page size")
	offset := fs.Int("offset", 0, "Offset")
	_ = fs.Parse(args)

	posts, err := c.ListPosts(*limit, *offset)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Printf("%4d  %-50s  %s  views=%d\n", p.ID, truncate(p.Title, 50), p.Author, p.Views)
	}
	return nil
}

func view(c *client.Client, id *visitor.Identity, args []string) error {
	postID, _, err := parseID(args)
	if err != nil {
		return err
	}
	tok, err := id.GetOrCreate()
	if err != nil {
		return err
	}

	p, err := c.ViewPost(postID, tok)
	if err != nil {
		return err
	}
	printPost(p)
	return nil
}

func comment(c *client.Client, id *visitor.Identity, args []string) error {
	postID, rest, err := parseID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	rating := fs.Int("rating", 0, "Rating from 1 to 5")
	text := fs.String("text", "", "Comment text")
	_ = fs.Parse(rest)

	tok, err := id.GetOrCreate()
	if err != nil {
		return err
	}
	cm, err := c.AddComment(postID, client.CommentRequest{
		Username:     *name,
		Comment:      *text,
		Rating:       *rating,
		VisitorToken: tok,
	})
	if client.IsCode(err, models.CodeDuplicateComment) {
		return errors.New("you have already commented on this post")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Comment %d added to post %d\n", cm.ID, postID)
	return nil
}

func login(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "Username")
	_ = fs.Parse(args)
	if *username == "" {
		return errors.New("-u is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	s, err := c.Login(*username, string(pw))
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s), token expires %s\n", s.Username, s.Role, s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func printPost(p *models.Post) {
	fmt.Println(p.Title)
	fmt.Println(strings.Repeat("=", len(p.Title)))
	fmt.Printf("by %s | %s | views %d | rating %.1f (%d comments)\n\n",
		p.Author, p.CreatedAt.Format("2006-01-02"), p.Views, p.AverageRating, len(p.Comments))
	fmt.Println(p.Content)
	for _, c := range p.Comments {
		fmt.Printf("\n  %s (%d/5): %s\n", c.Username, c.Rating, c.Comment)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
