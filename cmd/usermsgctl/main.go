package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/softside/user-message/internal/jwtsigner"
	"github.com/softside/user-message/pkg/msgclient"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "send":
		err = runSend(args)
	case "conversation":
		err = runConversation(args)
	case "contacts":
		err = runContacts(args)
	case "unread":
		err = runUnread(args)
	case "read":
		err = runRead(args)
	case "delete":
		err = runDelete(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  send          Send a message to a user")
	fmt.Fprintln(os.Stderr, "  conversation  Show the conversation with a user")
	fmt.Fprintln(os.Stderr, "  contacts      List conversation partners")
	fmt.Fprintln(os.Stderr, "  unread        Show unread message counts")
	fmt.Fprintln(os.Stderr, "  read          Mark a message as read")
	fmt.Fprintln(os.Stderr, "  delete        Soft-delete a message for yourself")
	os.Exit(2)
}

type commonOpts struct {
	baseURL string
	token   string
	secret  string
	issuer  string
	user    string
}

func addCommonFlags(fs *flag.FlagSet, o *commonOpts) {
	fs.StringVar(&o.baseURL, "url", envOr("USERMSG_URL", "http://localhost:8085"), "service base URL")
	fs.StringVar(&o.token, "token", os.Getenv("USERMSG_TOKEN"), "bearer token")
	fs.StringVar(&o.secret, "secret", os.Getenv("USERMSG_AUTH_SECRET"), "shared secret to mint a dev token")
	fs.StringVar(&o.issuer, "issuer", envOr("USERMSG_AUTH_ISSUER", "usermsg"), "token issuer")
	fs.StringVar(&o.user, "user", os.Getenv("USERMSG_USER"), "user id to act as (with -secret)")
}

func (o *commonOpts) client() (*msgclient.Client, error) {
	token := o.token
	if token == "" {
		if o.secret == "" || o.user == "" {
			return nil, fmt.Errorf("either -token or -secret with -user is required")
		}
		signer, err := jwtsigner.New(o.secret, o.issuer)
		if err != nil {
			return nil, err
		}
		token, err = signer.Sign(o.user, time.Hour, nil)
		if err != nil {
			return nil, err
		}
	}
	return msgclient.New(o.baseURL, token), nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	to := fs.String("to", "", "receiver user id")
	body := fs.String("body", "", "message body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" || *body == "" {
		return fmt.Errorf("-to and -body are required")
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	msg, err := c.Send(context.Background(), *to, *body)
	if err != nil {
		return err
	}
	fmt.Printf("sent %s at %s\n", msg.ID, msg.SentAt.Format(time.RFC3339))
	return nil
}

func runConversation(args []string) error {
	fs := flag.NewFlagSet("conversation", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	with := fs.String("with", "", "other user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *with == "" {
		return fmt.Errorf("-with is required")
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	msgs, err := c.Conversation(context.Background(), *with)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		read := " "
		if m.ReadAt != nil {
			read = "r"
		}
		fmt.Printf("%s [%s] %s -> %s: %s\n", m.SentAt.Format(time.RFC3339), read, m.SenderID, m.ReceiverID, m.Body)
	}
	return nil
}

func runContacts(args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	contacts, err := c.Contacts(context.Background())
	if err != nil {
		return err
	}
	for _, ct := range contacts {
		fmt.Printf("%s  unread=%d  %s  %q\n", ct.WithUserID, ct.Unread, ct.LatestSentAt.Format(time.RFC3339), ct.Preview)
	}
	return nil
}

func runUnread(args []string) error {
	fs := flag.NewFlagSet("unread", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	from := fs.String("from", "", "count only messages from this user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	count, err := c.UnreadCount(context.Background(), *from)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

func runRead(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	id := fs.String("id", "", "message id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	return c.MarkRead(context.Background(), *id)
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	var o commonOpts
	addCommonFlags(fs, &o)
	id := fs.String("id", "", "message id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	return c.Delete(context.Background(), *id)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
