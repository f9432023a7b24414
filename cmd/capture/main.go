// Command capture runs the capture flow against a running server using an
// image file in place of a camera
package main

import (
	"bitwise74/capture-api/app"
	"bitwise74/capture-api/internal/capture"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	server   = pflag.StringP("server", "s", "http://localhost:8080", "Base URL of the server")
	email    = pflag.StringP("email", "e", "", "Account email")
	password = pflag.StringP("password", "p", "", "Account password, prompted for when empty")
	imgPath  = pflag.StringP("image", "i", "", "Image file used as the camera")
	rating   = pflag.IntP("rating", "r", capture.DefaultRating, "Rating between 0 and 100")
	comment  = pflag.StringP("comment", "m", "", "Comment sent with the photo")
	retries  = pflag.Int("retries", 0, "How many times to retry a failed submission")
	logLevel = pflag.String("log-level", "warn", "Log level")
)

// Swapped out in tests
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func main() {
	pflag.Parse()

	if err := app.MakeLogger(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	if *imgPath == "" {
		return errors.New("no image provided, use --image")
	}

	if *email == "" {
		return errors.New("no email provided, use --email")
	}

	pw := *password
	if pw == "" {
		var err error
		if pw, err = promptPassword(in, out); err != nil {
			return err
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}

	token, err := capture.Login(ctx, client, *server, *email, pw)
	if err != nil {
		return fmt.Errorf("login failed, %w", err)
	}

	w := capture.New(capture.NewFileCamera(*imgPath), &capture.HTTPSubmitter{
		BaseURL: *server,
		Token:   token,
		Client:  client,
	})
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}

	if err := w.Capture(); err != nil {
		return err
	}

	if err := w.Annotate(*rating, *comment); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		text, err := w.Submit(ctx)
		if err == nil {
			fmt.Fprintln(out, text)
			return nil
		}

		if attempt >= *retries {
			return err
		}

		zap.L().Warn("Submission failed, retrying", zap.Error(err), zap.Int("attempt", attempt+1))
	}
}

// promptPassword reads the password without echo when stdin is a terminal and
// falls back to a plain line read otherwise
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")

	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}

		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}
