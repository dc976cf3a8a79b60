// Package judge decides whether a phase attempt is accepted, from the PM's
// free-text verdict on the produced artifact and its review.
package judge

import (
	"context"
	"regexp"
	"strings"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/config"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/prompt"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Verdict is the outcome of judging one attempt.
type Verdict string

const (
	Accept Verdict = "accept"
	Reject Verdict = "reject"
)

// Result is a parsed judge reply.
type Result struct {
	Verdict Verdict
	// Ambiguous is set in strict mode when the reply carries no YES/NO token.
	Ambiguous bool
	Rationale string
	Raw       string
}

// Accepted reports whether the attempt passed.
func (r Result) Accepted() bool {
	return r.Verdict == Accept
}

var (
	verdictLine = regexp.MustCompile(`(?im)^[\s\-*]*(?:verdict|completion)\s*[:：]\s*(.*)$`)
	yesNoToken  = regexp.MustCompile(`\b(YES|NO)\b`)
	reasonLabel = regexp.MustCompile(`(?i)reason\s*[:：]\s*`)
)

// ParseVerdict interprets reply under mode.
//
// In contains mode the attempt is rejected iff the reply contains the
// case-sensitive substring "NO" anywhere, so "not NO but close" rejects.
// In strict mode the first YES or NO token on the verdict line decides,
// falling back to the first token of the whole reply; with no token the
// result is a Reject flagged Ambiguous. Unknown modes behave as contains.
func ParseVerdict(reply, mode string) Result {
	res := Result{Raw: reply, Rationale: rationale(reply)}

	if mode != config.VerdictStrict {
		if strings.Contains(reply, "NO") {
			res.Verdict = Reject
		} else {
			res.Verdict = Accept
		}
		return res
	}

	token := ""
	if m := verdictLine.FindStringSubmatch(reply); m != nil {
		token = firstToken(m[1])
	}
	if token == "" {
		token = firstToken(reply)
	}
	switch token {
	case "YES":
		res.Verdict = Accept
	case "NO":
		res.Verdict = Reject
	default:
		res.Verdict = Reject
		res.Ambiguous = true
	}
	return res
}

func firstToken(s string) string {
	if m := yesNoToken.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		return m[1]
	}
	return ""
}

// rationale returns the text after a "Reason:" label, or the whole reply.
func rationale(reply string) string {
	loc := reasonLabel.FindStringIndex(reply)
	if loc == nil {
		return strings.TrimSpace(reply)
	}
	return strings.TrimSpace(reply[loc[1]:])
}

// Judge renders verdicts through the generator.
type Judge struct {
	gen    ai.Generator
	mode   string
	agent  *team.Agent
	logger *logging.Logger
}

// Option configures a Judge.
type Option func(*Judge)

// WithAgent makes the judge speak as agent.
func WithAgent(agent team.Agent) Option {
	return func(j *Judge) {
		j.agent = &agent
	}
}

// WithLogger sets the judge's logger.
func WithLogger(l *logging.Logger) Option {
	return func(j *Judge) {
		if l != nil {
			j.logger = l
		}
	}
}

// New creates a Judge that parses replies under mode.
func New(gen ai.Generator, mode string, opts ...Option) *Judge {
	j := &Judge{gen: gen, mode: mode, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Mode returns the verdict mode.
func (j *Judge) Mode() string {
	return j.mode
}

// Evaluate asks for a verdict on artifact and review. An ambiguous reply is
// logged and treated as a rejection, never as an error.
func (j *Judge) Evaluate(ctx context.Context, artifact, review string) (Result, error) {
	text, err := prompt.NewJudgeBuilder().Build(&prompt.Context{
		Kind:     prompt.KindJudge,
		Agent:    j.agent,
		Artifact: artifact,
		Review:   review,
	})
	if err != nil {
		return Result{}, crewerrors.Wrap(err, "build judge prompt")
	}

	reply, err := j.gen.Complete(ai.WithPurpose(ctx, ai.PurposeJudge), text)
	if err != nil {
		return Result{}, crewerrors.Wrap(err, "judge")
	}

	res := ParseVerdict(reply, j.mode)
	if res.Ambiguous {
		j.logger.Warn("ambiguous verdict treated as reject",
			"error", crewerrors.ErrJudgeAmbiguous.Error(),
			"reply", reply,
		)
	}
	return res, nil
}
