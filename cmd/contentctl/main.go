// Command contentctl submits content jobs to a running API and fetches their
// results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"contentmaker/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverFlag := &cli.StringFlag{
		Name:    "server",
		Usage:   "API base URL",
		Value:   "http://localhost:8000",
		Sources: cli.EnvVars("CONTENT_API_URL"),
	}

	app := &cli.Command{
		Name:  "contentctl",
		Usage: "Content Maker API client",
		Flags: []cli.Flag{serverFlag},
		Commands: []*cli.Command{
			{
				Name:      "submit",
				Usage:     "Submit a content request read from a JSON file (or - for stdin)",
				ArgsUsage: "<request.json>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Usage: "wait for the job to finish"},
					&cli.DurationFlag{Name: "interval", Usage: "poll interval", Value: 2 * time.Second},
				},
				Action: submitAction,
			},
			{
				Name:      "status",
				Usage:     "Show the status of a job",
				ArgsUsage: "<job_id>",
				Action:    statusAction,
			},
			{
				Name:      "wait",
				Usage:     "Poll until a job completes or fails",
				ArgsUsage: "<job_id>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Usage: "poll interval", Value: 2 * time.Second},
					&cli.DurationFlag{Name: "timeout", Usage: "give up after", Value: 30 * time.Minute},
				},
				Action: waitAction,
			},
			{
				Name:      "download",
				Usage:     "Download the artifact of a completed job",
				ArgsUsage: "<job_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "target directory", Value: "."},
				},
				Action: downloadAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "contentctl: %v\n", err)
		os.Exit(1)
	}
}

func apiClient(cmd *cli.Command) *client.Client {
	return client.New(cmd.String("server"))
}

func jobArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", errors.New("job id is required")
	}
	return id, nil
}

func submitAction(ctx context.Context, cmd *cli.Command) error {
	src := cmd.Args().First()
	if src == "" {
		return errors.New("request file is required")
	}
	var (
		body []byte
		err  error
	)
	if src == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(src)
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	c := apiClient(cmd)
	acc, err := c.Submit(ctx, body)
	if err != nil {
		return err
	}
	fmt.Printf("job %s %s\n", acc.JobID, acc.Status)
	if !cmd.Bool("wait") {
		return nil
	}
	st, err := c.Wait(ctx, acc.JobID, cmd.Duration("interval"))
	if err != nil {
		return err
	}
	return printJSON(st)
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	st, err := apiClient(cmd).Status(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(st)
}

func waitAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	st, err := apiClient(cmd).Wait(ctx, id, cmd.Duration("interval"))
	if err != nil {
		return err
	}
	if err := printJSON(st); err != nil {
		return err
	}
	if st.Error != nil {
		return fmt.Errorf("job failed: %s", *st.Error)
	}
	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobArg(cmd)
	if err != nil {
		return err
	}
	dir := cmd.String("dir")
	tmp, err := os.CreateTemp(dir, ".contentctl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	name, err := apiClient(cmd).Download(ctx, id, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}
	fmt.Println(target)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
