// Package examapi is the HTTP client for the remote exam service: question
// set retrieval, answer submission and answer sheets.
package examapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

// Remote API paths, relative to the base URL.
const (
	pathQuestionSet  = "archive/get_question"
	pathSubmit       = "exam/answer_submit"
	pathAnswerSheet  = "exam"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "exstem-portal"
)

// envelope is the remote service's response wrapper.
type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the remote exam service. It is safe for concurrent use.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	scheme  string
	timeout time.Duration
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client from the remote service settings in cfg.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                defaultUserAgent,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: cfg.RemoteBaseURL,
		scheme:  cfg.RemoteAuthScheme,
		timeout: timeout,
		token:   cfg.RemoteAuthToken,
		log:     log.With().Str("component", "examapi").Logger(),
	}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// HasToken reports whether a token is configured.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// FetchQuestionSet retrieves the exam payload of a question set.
func (c *Client) FetchQuestionSet(ctx context.Context, questionSetID int64) (*model.ExamPayload, error) {
	const op = "fetch question set"

	query := map[string]string{"question_id": strconv.FormatInt(questionSetID, 10)}
	env, err := c.do(ctx, op, fasthttp.MethodGet, pathQuestionSet, query, nil)
	if err != nil {
		return nil, err
	}
	if env.Error {
		return nil, &Error{Op: op, Status: fasthttp.StatusOK, Message: env.Message, Kind: ErrServer}
	}
	if isNull(env.Data) {
		return nil, &Error{Op: op, Status: fasthttp.StatusOK, Message: env.Message, Kind: ErrNotFound}
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, &Error{Op: op, Message: "decode payload", Kind: ErrServer, Err: err}
	}
	payload.QuestionSetID = questionSetID
	return &payload, nil
}

// SubmitAnswers posts the ordered answer list of a question set. It is never
// retried here; the remote side is not assumed to be idempotent.
func (c *Client) SubmitAnswers(ctx context.Context, questionSetID int64, answers []model.AnswerEntry) (*model.SubmissionResult, error) {
	const op = "submit answers"

	body, err := json.Marshal(model.SubmissionRequest{QuestionSetID: questionSetID, Answers: answers})
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	env, err := c.do(ctx, op, fasthttp.MethodPost, pathSubmit, nil, body)
	if err != nil {
		return nil, err
	}
	if env.Error {
		return nil, &Error{Op: op, Status: fasthttp.StatusOK, Message: env.Message, Kind: ErrServer}
	}
	return &model.SubmissionResult{Error: env.Error, Message: env.Message}, nil
}

// GetAnswerSheet retrieves the graded answer sheet of a past attempt.
func (c *Client) GetAnswerSheet(ctx context.Context, questionSetID, answerID int64, sort int) (*model.AnswerSheet, error) {
	const op = "get answer sheet"

	query := map[string]string{
		"answere_sheet_question_id": strconv.FormatInt(questionSetID, 10),
		"answer_id":                 strconv.FormatInt(answerID, 10),
		"sort":                      strconv.Itoa(sort),
	}
	env, err := c.do(ctx, op, fasthttp.MethodGet, pathAnswerSheet, query, nil)
	if err != nil {
		return nil, err
	}
	if env.Error {
		return nil, &Error{Op: op, Status: fasthttp.StatusOK, Message: env.Message, Kind: ErrServer}
	}
	if isNull(env.Data) {
		return nil, &Error{Op: op, Status: fasthttp.StatusOK, Message: env.Message, Kind: ErrNotFound}
	}

	var sheet model.AnswerSheet
	if err := json.Unmarshal(env.Data, &sheet); err != nil {
		return nil, &Error{Op: op, Message: "decode answer sheet", Kind: ErrServer, Err: err}
	}
	return &sheet, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query map[string]string, body []byte) (*envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	args := req.URI().QueryArgs()
	for k, v := range query {
		args.Set(k, v)
	}
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, c.scheme+" "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	err := c.http.DoTimeout(req, resp, c.requestTimeout(ctx))
	status := resp.StatusCode()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("Remote request")

	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}

	if kind := statusKind(status); kind != nil {
		e := &Error{Op: op, Status: status, Kind: kind}
		var env envelope
		if json.Unmarshal(resp.Body(), &env) == nil {
			e.Message = env.Message
		}
		return nil, e
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &Error{Op: op, Status: status, Message: "malformed response", Kind: ErrServer, Err: err}
	}
	return &env, nil
}

// requestTimeout bounds the request by the context deadline when one is
// sooner than the client timeout.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func statusKind(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == fasthttp.StatusNotFound:
		return ErrNotFound
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrServer
	default:
		return ErrRejected
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

