package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/config"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
	"github.com/spf13/cobra"
)

const typingIndicator = "TalentScout is typing..."

// readFunc returns the next line the candidate typed.
type readFunc func() (string, error)

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run one intake conversation in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), c.cfg, promptReader(), cmd.OutOrStdout())
		},
	}
}

// promptReader reads candidate input with promptui. Blank lines are refused at the prompt.
func promptReader() readFunc {
	p := promptui.Prompt{
		Label: "You",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("please type a reply")
			}
			return nil
		},
	}
	return p.Run
}

func runChat(ctx context.Context, cfg *config.Config, read readFunc, out io.Writer) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	bank, err := loadQuestionBank(cfg.QuestionBank)
	if err != nil {
		return err
	}

	worker := persist.NewWorker(st, persist.WithQueueSize(cfg.PersistQueueSize))
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		<-workerDone
	}()

	engine := flow.NewEngine(
		flow.WithQuestionBank(bank),
		flow.WithComposingDelay(cfg.ComposingDelay),
		flow.WithSink(worker),
	)
	conv := flow.NewConversation("terminal")
	greeting := engine.Start(conv)
	fmt.Fprintf(out, "TalentScout: %s\n", greeting.Content)

	for conv.Step() != flow.StepClosing {
		input, err := read()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Chat ended.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if engine.ComposingDelay() > 0 {
			fmt.Fprintln(out, typingIndicator)
		}
		reply, err := engine.Submit(ctx, conv, input)
		if errors.Is(err, flow.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "TalentScout: %s\n", reply.Content)
	}

	// let the completion write land before reporting the session id
	stopWorker()
	<-workerDone
	if id, ok := worker.SessionID(conv.Handle()); ok {
		fmt.Fprintf(out, "Session %d saved.\n", id)
		slog.Debug("runChat: session saved", "sessionID", id)
	}
	return nil
}
