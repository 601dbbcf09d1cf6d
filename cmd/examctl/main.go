package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/examapi"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/worker"
	"golang.org/x/term"
)

const help = `Commands:
  a <question> <opt>=<y|n|-> ...   mark options of a multi-flag question (opt 1-5)
  a <question> <opt|->             choose an option of a single-choice question
  l                                list questions and answers
  s                                show remaining time and answer counts
  p                                preview the encoded answer list
  submit                           submit and finish
  q                                quit without submitting`

// Takes an exam from the terminal against the exam service. Logs go to
// stderr; the exam is driven on stdout.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := examapi.NewClient(cfg, log)
	sess := session.New(client, repository.NewMemorySnapshotStore(), log,
		session.WithRetryBudget(cfg.SubmitRetryBudget))
	if err := sess.Rehydrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== ExStem Exam ===")

	if !client.HasToken() {
		fmt.Print("Enter exam service token: ")
		byteToken, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading token")
			return
		}
		token := strings.TrimSpace(string(byteToken))
		if token == "" {
			fmt.Println("Error: token is required")
			return
		}
		client.SetToken(token)
	}

	fmt.Print("Enter question set ID: ")
	idStr, _ := reader.ReadString('\n')
	questionSetID, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || questionSetID <= 0 {
		fmt.Println("Error: question set ID must be a positive number")
		return
	}

	payload, err := sess.Load(ctx, questionSetID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("\n%s: %d questions, %d minutes\n", payload.Syllabus, len(payload.Questions), payload.ExamTime)

	fmt.Print("Start the exam now? [y/N]: ")
	confirm, _ := reader.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(confirm), "y") {
		return
	}
	if err := sess.Start(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	// ─── Exam Loop ─────────────────────────────────────────────────────
	go worker.NewTickWorker(sess, cfg.TickInterval, log).Start(ctx)

	printQuestions(payload, sess.Answers())
	fmt.Println(help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(line)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Print("> ")
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := runCommand(ctx, sess, payload, line); quit {
				return
			}
			fmt.Print("> ")
		case <-ticker.C:
		}

		// A timeout auto-submit completes the exam between commands.
		if st := sess.Status(); st.ExamCompleted {
			printReceipt(st.Receipt)
			return
		}
	}
}

func runCommand(ctx context.Context, sess *session.Session, payload *model.ExamPayload, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "a":
		if len(fields) < 3 {
			fmt.Println("Usage: a <question> <answer>")
			return false
		}
		qid, answer, err := parseAnswer(payload, fields[1], fields[2:])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		if err := sess.SetAnswer(ctx, qid, answer); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	case "l":
		printQuestions(payload, sess.Answers())
	case "s":
		st := sess.Status()
		fmt.Printf("Time left %s", st.TimeDisplay)
		if st.TimeRunningLow {
			fmt.Print(" (running low)")
		}
		if st.Summary != nil {
			fmt.Printf(", answered %d/%d", st.Summary.TotalAnswered, st.Summary.TotalQuestions)
		}
		fmt.Println()
	case "p":
		entries, err := sess.Preview()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		for _, e := range entries {
			fmt.Printf("  %d  %s  %s\n", e.QuestionID, e.Type, e.Answer)
		}
	case "submit":
		receipt, err := sess.Submit(ctx, model.SubmitManual)
		if receipt == nil {
			fmt.Printf("Submit failed: %v\nYour answers are kept, try again.\n", err)
			return false
		}
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		printReceipt(receipt)
		return true
	case "q":
		return true
	default:
		fmt.Println(help)
	}
	return false
}

// parseAnswer turns the arguments of an "a" command into an answer for the
// question's group. Options are numbered from 1 on the terminal.
func parseAnswer(payload *model.ExamPayload, idArg string, args []string) (int64, model.Answer, error) {
	qid, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return 0, model.Answer{}, fmt.Errorf("invalid question %q", idArg)
	}
	q, ok := payload.QuestionByID(qid)
	if !ok {
		return 0, model.Answer{}, session.ErrUnknownQuestion
	}

	switch q.Type.Group() {
	case model.GroupSingleChoice:
		if args[0] == "-" {
			return qid, model.SingleChoiceAnswer(-1), nil
		}
		opt, err := parseOption(args[0])
		if err != nil {
			return 0, model.Answer{}, err
		}
		return qid, model.SingleChoiceAnswer(opt), nil
	case model.GroupMultiFlag:
		marks := make(map[int]model.Mark, len(args))
		for _, arg := range args {
			optStr, value, found := strings.Cut(arg, "=")
			if !found {
				return 0, model.Answer{}, fmt.Errorf("expected <opt>=<y|n|->, got %q", arg)
			}
			opt, err := parseOption(optStr)
			if err != nil {
				return 0, model.Answer{}, err
			}
			switch strings.ToLower(value) {
			case "y", "t", "true":
				marks[opt] = model.MarkTrue
			case "n", "f", "false":
				marks[opt] = model.MarkFalse
			case "-":
				marks[opt] = model.MarkUnset
			default:
				return 0, model.Answer{}, fmt.Errorf("invalid mark %q", value)
			}
		}
		return qid, model.MultiFlagAnswer(marks), nil
	default:
		return 0, model.Answer{}, session.ErrAnswerMismatch
	}
}

func parseOption(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > model.MaxOptions {
		return 0, errors.New("option must be between 1 and 5")
	}
	return n - 1, nil
}

func printQuestions(payload *model.ExamPayload, answers map[int64]model.Answer) {
	for i, q := range payload.Questions {
		fmt.Printf("\n%d. [%d] %s\n", i+1, q.ID, q.Text)
		a := answers[q.ID]
		for idx, opt := range q.OptionSlots() {
			if strings.TrimSpace(opt) == "" {
				continue
			}
			fmt.Printf("   %s %d) %s\n", optionMarker(q.Type.Group(), a, idx), idx+1, opt)
		}
	}
	fmt.Println()
}

func optionMarker(group model.AnswerGroup, a model.Answer, idx int) string {
	switch group {
	case model.GroupSingleChoice:
		if a.Choice != nil && *a.Choice == idx {
			return "(*)"
		}
		return "( )"
	case model.GroupMultiFlag:
		switch a.Marks[idx] {
		case model.MarkTrue:
			return "[Y]"
		case model.MarkFalse:
			return "[N]"
		}
	}
	return "[ ]"
}

func printReceipt(r *model.Receipt) {
	if r == nil {
		return
	}
	fmt.Printf("\nExam %d completed (%s) at %s\n", r.QuestionSetID, r.Reason, r.CompletedAt.Format(time.RFC1123))
	fmt.Printf("Answered %d of %d questions\n", r.Summary.TotalAnswered, r.Summary.TotalQuestions)
	if r.Unconfirmed {
		fmt.Println("The exam service did not confirm this submission.")
	} else if r.Result != nil && r.Result.Message != "" {
		fmt.Println(r.Result.Message)
	}
}
